package ruuvi

import "fmt"

// minLength is the shortest payload holding every field of a format.
// A format 4 payload only needs the bytes up to the pressure field.
var minLength = map[int]int{
	FormatRAWv1: 14,
	FormatURL:   6,
	FormatRAWv2: 24,
}

// Decode parses a RuuviTag payload whose first byte is the data format tag.
// It returns *UnsupportedFormatError for tags other than 3, 4 and 5 and
// *TruncatedPayloadError when the payload is too short for its format.
// Bytes beyond the format length are ignored.
func Decode(data []byte) (SensorReading, error) {
	if len(data) == 0 {
		return SensorReading{}, &TruncatedPayloadError{Format: -1, Want: 1, Got: 0}
	}

	format := int(data[0])
	want, ok := minLength[format]
	if !ok {
		return SensorReading{}, &UnsupportedFormatError{Format: format}
	}
	if len(data) < want {
		return SensorReading{}, &TruncatedPayloadError{Format: format, Want: want, Got: len(data)}
	}

	return SensorReading{
		DataFormat:                format,
		Temperature:               decodeFloat(temperatureDecoders, format, data),
		Humidity:                  decodeFloat(humidityDecoders, format, data),
		AirPressure:               decodeFloat(pressureDecoders, format, data),
		AccelerationX:             decodeFloat(accelerationXDecoders, format, data),
		AccelerationY:             decodeFloat(accelerationYDecoders, format, data),
		AccelerationZ:             decodeFloat(accelerationZDecoders, format, data),
		BatteryVoltage:            decodeFloat(batteryDecoders, format, data),
		TxPower:                   decodeFloat(txPowerDecoders, format, data),
		MovementCounter:           decodeInt(movementDecoders, format, data),
		MeasurementSequenceNumber: decodeInt(sequenceDecoders, format, data),
		MacAddress:                decodeString(macDecoders, format, data),
	}, nil
}

// DecodeManufacturerData decodes data advertised under the given company ID.
func DecodeManufacturerData(id uint16, data []byte) (SensorReading, error) {
	if id != ManufacturerID {
		return SensorReading{}, fmt.Errorf("%w: 0x%04X", ErrUnknownManufacturer, id)
	}
	return Decode(data)
}
