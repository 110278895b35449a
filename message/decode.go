package message

import (
	"fmt"

	"github.com/psql-wire/client/pkg/buffer"
	"github.com/psql-wire/client/pkg/types"
)

// Decode decodes the body of a backend message already loaded into reader
// (via reader.ReadTypedMsg) into its typed representation.
func Decode(reader *buffer.Reader, t types.ServerMessage) (Message, error) {
	switch t {
	case types.ServerAuth:
		return decodeAuthentication(reader)
	case types.ServerBackendKeyData:
		return decodeBackendKeyData(reader)
	case types.ServerBindComplete:
		return BindComplete{}, nil
	case types.ServerCloseComplete:
		return CloseComplete{}, nil
	case types.ServerCommandComplete:
		return decodeCommandComplete(reader)
	case types.ServerDataRow:
		return decodeDataRow(reader)
	case types.ServerEmptyQuery:
		return EmptyQueryResponse{}, nil
	case types.ServerErrorResponse:
		fields, err := decodeFields(reader)
		if err != nil {
			return nil, err
		}
		return ErrorResponse{Fields: fields}, nil
	case types.ServerNoData:
		return NoData{}, nil
	case types.ServerNoticeResponse:
		fields, err := decodeFields(reader)
		if err != nil {
			return nil, err
		}
		return NoticeResponse{Fields: fields}, nil
	case types.ServerNotificationResponse:
		return decodeNotificationResponse(reader)
	case types.ServerParameterDescription:
		return decodeParameterDescription(reader)
	case types.ServerParameterStatus:
		return decodeParameterStatus(reader)
	case types.ServerParseComplete:
		return ParseComplete{}, nil
	case types.ServerPortalSuspended:
		return PortalSuspended{}, nil
	case types.ServerReady:
		return decodeReadyForQuery(reader)
	case types.ServerRowDescription:
		return decodeRowDescription(reader)
	default:
		return nil, fmt.Errorf("unknown backend message type %q", t.String())
	}
}

func decodeAuthentication(reader *buffer.Reader) (Message, error) {
	code, err := reader.GetInt32()
	if err != nil {
		return nil, err
	}

	switch types.AuthType(code) {
	case types.AuthOK:
		return AuthenticationOK{}, nil
	case types.AuthCleartextPassword:
		return AuthenticationCleartextPassword{}, nil
	case types.AuthMD5Password:
		salt, err := reader.GetBytes(4)
		if err != nil {
			return nil, err
		}
		var s [4]byte
		copy(s[:], salt)
		return AuthenticationMD5Password{Salt: s}, nil
	case types.AuthSASL:
		var mechanisms []string
		for {
			name, err := reader.GetString()
			if err != nil {
				return nil, err
			}
			if name == "" {
				break
			}
			mechanisms = append(mechanisms, name)
		}
		return AuthenticationSASL{Mechanisms: mechanisms}, nil
	case types.AuthSASLContinue:
		return AuthenticationSASLContinue{Data: append([]byte(nil), reader.Remaining()...)}, nil
	case types.AuthSASLFinal:
		return AuthenticationSASLFinal{Data: append([]byte(nil), reader.Remaining()...)}, nil
	default:
		return nil, fmt.Errorf("unsupported authentication method %d", code)
	}
}

func decodeBackendKeyData(reader *buffer.Reader) (Message, error) {
	pid, err := reader.GetInt32()
	if err != nil {
		return nil, err
	}

	secret, err := reader.GetInt32()
	if err != nil {
		return nil, err
	}

	return BackendKeyData{ProcessID: pid, SecretKey: secret}, nil
}

func decodeCommandComplete(reader *buffer.Reader) (Message, error) {
	tag, err := reader.GetString()
	if err != nil {
		return nil, err
	}

	return CommandComplete{Tag: tag}, nil
}

func decodeDataRow(reader *buffer.Reader) (Message, error) {
	n, err := reader.GetInt16()
	if err != nil {
		return nil, err
	}

	values := make([][]byte, n)
	for i := 0; i < int(n); i++ {
		size, err := reader.GetInt32()
		if err != nil {
			return nil, err
		}

		v, err := reader.GetBytes(int(size))
		if err != nil {
			return nil, err
		}

		values[i] = v
	}

	return DataRow{Values: values}, nil
}

func decodeFields(reader *buffer.Reader) ([]Field, error) {
	var fields []Field
	for {
		t, err := reader.GetByte()
		if err != nil {
			return nil, err
		}

		if t == 0 {
			break
		}

		v, err := reader.GetString()
		if err != nil {
			return nil, err
		}

		fields = append(fields, Field{Type: t, Value: v})
	}

	return fields, nil
}

func decodeNotificationResponse(reader *buffer.Reader) (Message, error) {
	pid, err := reader.GetInt32()
	if err != nil {
		return nil, err
	}

	channel, err := reader.GetString()
	if err != nil {
		return nil, err
	}

	payload, err := reader.GetString()
	if err != nil {
		return nil, err
	}

	return NotificationResponse{ProcessID: pid, Channel: channel, Payload: payload}, nil
}

func decodeParameterDescription(reader *buffer.Reader) (Message, error) {
	n, err := reader.GetInt16()
	if err != nil {
		return nil, err
	}

	oids := make([]uint32, n)
	for i := 0; i < int(n); i++ {
		oid, err := reader.GetUint32()
		if err != nil {
			return nil, err
		}
		oids[i] = oid
	}

	return ParameterDescription{OIDs: oids}, nil
}

func decodeParameterStatus(reader *buffer.Reader) (Message, error) {
	name, err := reader.GetString()
	if err != nil {
		return nil, err
	}

	value, err := reader.GetString()
	if err != nil {
		return nil, err
	}

	return ParameterStatus{Name: name, Value: value}, nil
}

func decodeReadyForQuery(reader *buffer.Reader) (Message, error) {
	status, err := reader.GetByte()
	if err != nil {
		return nil, err
	}

	return ReadyForQuery{TxStatus: status}, nil
}

func decodeRowDescription(reader *buffer.Reader) (Message, error) {
	n, err := reader.GetInt16()
	if err != nil {
		return nil, err
	}

	fields := make([]FieldDescription, n)
	for i := 0; i < int(n); i++ {
		name, err := reader.GetString()
		if err != nil {
			return nil, err
		}

		tableOID, err := reader.GetUint32()
		if err != nil {
			return nil, err
		}

		attrNo, err := reader.GetInt16()
		if err != nil {
			return nil, err
		}

		dataTypeOID, err := reader.GetUint32()
		if err != nil {
			return nil, err
		}

		dataTypeSize, err := reader.GetInt16()
		if err != nil {
			return nil, err
		}

		typeModifier, err := reader.GetInt32()
		if err != nil {
			return nil, err
		}

		format, err := reader.GetInt16()
		if err != nil {
			return nil, err
		}

		fields[i] = FieldDescription{
			Name:         name,
			TableOID:     tableOID,
			AttrNo:       attrNo,
			DataTypeOID:  dataTypeOID,
			DataTypeSize: dataTypeSize,
			TypeModifier: typeModifier,
			Format:       FormatCode(format),
		}
	}

	return RowDescription{Fields: fields}, nil
}
