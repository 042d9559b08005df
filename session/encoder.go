package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// CurrentSchemaVersion is the version byte written by Encode.
const CurrentSchemaVersion uint8 = 1

func Encode(b *Blob) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(2 + len(b.UserID) + len(b.Platform) + 17)

	buf.WriteByte(CurrentSchemaVersion)

	if len(b.UserID) == 0 || len(b.UserID) > 255 {
		return nil, errors.New("userID length out of range")
	}
	buf.WriteByte(byte(len(b.UserID)))
	buf.WriteString(b.UserID)

	if len(b.Platform) > 255 {
		return nil, errors.New("platform too long")
	}
	buf.WriteByte(byte(len(b.Platform)))
	buf.WriteString(b.Platform)

	if err := binary.Write(&buf, binary.BigEndian, b.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, b.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func Decode(data []byte) (*Blob, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != CurrentSchemaVersion {
		return nil, fmt.Errorf("unsupported session schema version %d", version)
	}

	b := &Blob{SchemaVersion: version}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	b.UserID = string(userID)

	platformLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	platform := make([]byte, platformLen)
	if _, err := io.ReadFull(reader, platform); err != nil {
		return nil, err
	}
	b.Platform = string(platform)

	if err := binary.Read(reader, binary.BigEndian, &b.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &b.ExpiresAt); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in session blob")
	}

	return b, nil
}
