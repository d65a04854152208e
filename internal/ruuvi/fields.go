package ruuvi

import (
	"math"

	"ruuvi-gateway/internal/utils"
)

// Each table maps a data format to the decoder of one field. A format
// missing from a table does not carry that field.
type (
	floatDecoder  func(b []byte) float64
	intDecoder    func(b []byte) int
	stringDecoder func(b []byte) string
)

var temperatureDecoders = map[int]floatDecoder{
	FormatRAWv1: signMagnitudeTemperature,
	FormatURL:   signMagnitudeTemperature,
	FormatRAWv2: func(b []byte) float64 {
		return round(float64(SignedValue(b[1], b[2], 16))*0.005, 3)
	},
}

var humidityDecoders = map[int]floatDecoder{
	FormatRAWv1: halfPercentHumidity,
	FormatURL:   halfPercentHumidity,
	FormatRAWv2: func(b []byte) float64 {
		return round(float64(unsigned16(b[3], b[4]))*0.0025, 4)
	},
}

var pressureDecoders = map[int]floatDecoder{
	FormatRAWv1: pressureAt(4),
	FormatURL:   pressureAt(4),
	FormatRAWv2: pressureAt(5),
}

var accelerationXDecoders = map[int]floatDecoder{
	FormatRAWv1: accelerationAt(6),
	FormatRAWv2: accelerationAt(7),
}

var accelerationYDecoders = map[int]floatDecoder{
	FormatRAWv1: accelerationAt(8),
	FormatRAWv2: accelerationAt(9),
}

var accelerationZDecoders = map[int]floatDecoder{
	FormatRAWv1: accelerationAt(10),
	FormatRAWv2: accelerationAt(11),
}

var batteryDecoders = map[int]floatDecoder{
	FormatRAWv1: func(b []byte) float64 {
		return round(float64(unsigned16(b[12], b[13]))/1000, 3)
	},
	FormatRAWv2: func(b []byte) float64 {
		mv := 1600 + ((unsigned16(b[13], b[14]) >> 5) & 0x7FF)
		return round(float64(mv)/1000, 3)
	},
}

var txPowerDecoders = map[int]floatDecoder{
	FormatRAWv2: func(b []byte) float64 {
		return float64(-40 + (unsigned16(b[13], b[14])&0x1F)*2)
	},
}

var movementDecoders = map[int]intDecoder{
	FormatRAWv2: func(b []byte) int { return int(b[15]) },
}

var sequenceDecoders = map[int]intDecoder{
	FormatRAWv2: func(b []byte) int { return unsigned16(b[16], b[17]) },
}

var macDecoders = map[int]stringDecoder{
	FormatRAWv2: func(b []byte) string {
		return utils.BytesToHexSep(b[18:24], "-")
	},
}

// Bit 7 of byte 2 is the sign, the low 7 bits whole degrees and byte 3
// hundredths. The fraction is added to the magnitude before the sign.
func signMagnitudeTemperature(b []byte) float64 {
	v := float64(b[2]&0x7F) + float64(b[3])/100
	if b[2]&0x80 != 0 {
		v = -v
	}
	return round(v, 2)
}

func halfPercentHumidity(b []byte) float64 {
	return float64(b[1]) / 2
}

// pressureAt decodes an unsigned Pa offset by 50000, in hPa.
func pressureAt(off int) floatDecoder {
	return func(b []byte) float64 {
		return round(float64(unsigned16(b[off], b[off+1])+50000)/100, 2)
	}
}

// accelerationAt decodes a signed milli-g axis, in g.
func accelerationAt(off int) floatDecoder {
	return func(b []byte) float64 {
		return round(float64(SignedValue(b[off], b[off+1], 16))/1000, 3)
	}
}

func decodeFloat(table map[int]floatDecoder, format int, b []byte) *float64 {
	dec, ok := table[format]
	if !ok {
		return nil
	}
	v := dec(b)
	return &v
}

func decodeInt(table map[int]intDecoder, format int, b []byte) *int {
	dec, ok := table[format]
	if !ok {
		return nil
	}
	v := dec(b)
	return &v
}

func decodeString(table map[int]stringDecoder, format int, b []byte) *string {
	dec, ok := table[format]
	if !ok {
		return nil
	}
	v := dec(b)
	return &v
}

func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
