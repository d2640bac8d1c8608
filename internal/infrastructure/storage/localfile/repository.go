// Package localfile serves the policy book from a JSON or CSV export on
// local disk and watches that file for changes.
package localfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/turtacn/TreatyBoard/internal/domain/policy"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

// Repository implements policy.Repository over a file.  The format follows
// the extension: ".csv" is a header row plus data rows, anything else is
// JSON, either an array of rows or an object with a "policies" array.
type Repository struct {
	path   string
	logger logging.Logger
}

var _ policy.Repository = (*Repository)(nil)

func NewRepository(path string, logger logging.Logger) *Repository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Repository{path: path, logger: logger.Named("localfile")}
}

func (r *Repository) Path() string { return r.path }

func (r *Repository) FindAll(ctx context.Context) ([]policy.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "read policy file").WithDetail(r.path)
	}

	var raws []policy.Raw
	if strings.EqualFold(filepath.Ext(r.path), ".csv") {
		raws, err = decodeCSV(data)
	} else {
		raws, err = decodeJSON(data)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceParseError, "decode policy file").WithDetail(r.path)
	}

	r.logger.Debug("policy file loaded", logging.String("path", r.path), logging.Int("rows", len(raws)))
	return policy.RecordsFromRaw(raws), nil
}

func decodeJSON(data []byte) ([]policy.Raw, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []policy.Raw{}, nil
	}
	if data[0] == '{' {
		var doc struct {
			Policies []policy.Raw `json:"policies"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return doc.Policies, nil
	}
	var rows []policy.Raw
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// decodeCSV maps header names onto policy.Raw columns.  Unknown headers are
// ignored.
func decodeCSV(data []byte) ([]policy.Raw, error) {
	rd := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true

	header, err := rd.Read()
	if err == io.EOF {
		return []policy.Raw{}, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []policy.Raw
	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		var raw policy.Raw
		for i, col := range header {
			if i < len(rec) {
				raw.Set(col, rec[i])
			}
		}
		rows = append(rows, raw)
	}
	if rows == nil {
		rows = []policy.Raw{}
	}
	return rows, nil
}
