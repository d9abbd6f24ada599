package history

import (
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"

	"github.com/outofforest/sigma/types"
)

type exportedLog struct {
	ID      []byte           `cbor:"1,keyasint"`
	Records []exportedRecord `cbor:"2,keyasint"`
}

type exportedRecord struct {
	Label    string `cbor:"1,keyasint"`
	Blocks   []byte `cbor:"2,keyasint"`
	Checksum []byte `cbor:"3,keyasint"`
}

// Export writes log to w encoded as CBOR.
func (l *Log) Export(w io.Writer) error {
	records := make([]exportedRecord, 0, len(l.entries))
	for _, e := range l.entries {
		blocks, err := l.blocks(e)
		if err != nil {
			return err
		}
		records = append(records, exportedRecord{
			Label:    e.Label,
			Blocks:   blocks,
			Checksum: e.Checksum[:],
		})
	}

	return errors.WithStack(cbor.NewEncoder(w).Encode(exportedLog{
		ID:      l.id[:],
		Records: records,
	}))
}

// Import reads log exported by Export. Checksums are verified and every record must hold exactly one tree.
func Import(r io.Reader, config Config) (*Log, error) {
	var exported exportedLog
	if err := cbor.NewDecoder(r).Decode(&exported); err != nil {
		return nil, errors.WithStack(err)
	}

	id, err := uuid.FromBytes(exported.ID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	l, err := New(config)
	if err != nil {
		return nil, err
	}
	l.id = id

	for i, record := range exported.Records {
		var checksum Checksum
		if len(record.Checksum) != len(checksum) {
			return nil, errors.Wrapf(types.ErrGeneric, "invalid checksum length of record %d", i)
		}
		copy(checksum[:], record.Checksum)
		if blake3.Sum256(record.Blocks) != checksum {
			return nil, errors.Wrapf(types.ErrGeneric, "checksum of record %d does not match", i)
		}
		if err := types.CheckTree(record.Blocks); err != nil {
			return nil, errors.WithMessagef(err, "record %d", i)
		}
		if _, err := l.append(record.Label, record.Blocks, checksum); err != nil {
			return nil, err
		}
	}
	return l, nil
}
