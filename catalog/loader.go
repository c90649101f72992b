package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("catalog")

// LoadMachines parses a JOE_MACHINES.TXT catalog: ';'-delimited, header row
// skipped, fields (article number, display name, file stem, version).
// Grounded on the original source's io::CSVReader<4, ..., ';'> reader.
func LoadMachines(path string) (map[uint64]MachineEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: opening machine catalog: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = 4
	r.TrimLeadingSpace = true

	// Skip the header row.
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("catalog: machine catalog is empty")
		}
		return nil, fmt.Errorf("catalog: reading machine catalog header: %w", err)
	}

	result := make(map[uint64]MachineEntry)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: reading machine catalog row: %w", err)
		}

		article, err := strconv.ParseUint(strings.TrimSpace(row[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("catalog: invalid article number %q: %w", row[0], err)
		}
		version, err := strconv.ParseUint(strings.TrimSpace(row[3]), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("catalog: invalid version %q: %w", row[3], err)
		}

		result[article] = MachineEntry{
			ArticleNumber: article,
			Name:          strings.TrimSpace(row[1]),
			FileStem:      strings.TrimSpace(row[2]),
			Version:       uint8(version),
		}
	}

	log.Infof("loaded %d machines", len(result))
	return result, nil
}
