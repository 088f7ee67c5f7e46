package metadata

import (
	"bytes"
	"fmt"

	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	xdr "github.com/rasky/go-xdr/xdr2"
)

// recordWire is the XDR (RFC 4506) layout of a stored record.
//
//	struct record {
//	    string author<>;
//	    unsigned int access;
//	};
type recordWire struct {
	Author string
	Access uint32
}

// EncodeRecord serializes rec for persistent stores.
func EncodeRecord(rec access.Record) ([]byte, error) {
	if !rec.Access.Valid() {
		return nil, fmt.Errorf("encode record: invalid access level %d", uint8(rec.Access))
	}

	var buf bytes.Buffer
	wire := recordWire{Author: string(rec.Author), Access: uint32(rec.Access)}
	if _, err := xdr.Marshal(&buf, &wire); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRecord parses bytes produced by EncodeRecord.
//
// Unknown access values and trailing bytes are rejected with ErrCorruptRecord.
func DecodeRecord(data []byte) (access.Record, error) {
	var wire recordWire
	r := bytes.NewReader(data)
	if _, err := xdr.Unmarshal(r, &wire); err != nil {
		return access.Record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if r.Len() != 0 {
		return access.Record{}, fmt.Errorf("%w: %d trailing bytes", ErrCorruptRecord, r.Len())
	}

	level := access.Level(wire.Access)
	if wire.Access > uint32(access.Write) || !level.Valid() {
		return access.Record{}, fmt.Errorf("%w: access level %d", ErrCorruptRecord, wire.Access)
	}

	return access.Record{Author: access.Identity(wire.Author), Access: level}, nil
}
