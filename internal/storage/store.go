package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/san-kum/chaosfind/internal/config"
	"github.com/san-kum/chaosfind/internal/dynamo"
)

// SystemsFile is the name of the best-set document inside the store
// directory.
const SystemsFile = "systems.json"

// Store keeps the best set as a single indented JSON array. Each save
// replaces the whole document.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

func (s *Store) Path() string {
	return filepath.Join(s.baseDir, SystemsFile)
}

// LoadSystems reads the stored set. A missing file yields an empty set; an
// unreadable or malformed one yields a *dynamo.LoadError.
func (s *Store) LoadSystems() ([]dynamo.Candidate, error) {
	path := s.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("no saved systems found", "path", path)
			return []dynamo.Candidate{}, nil
		}
		return nil, &dynamo.LoadError{Path: path, Err: err}
	}

	systems, err := decodeSystems(data)
	if err != nil {
		return nil, &dynamo.LoadError{Path: path, Err: err}
	}

	slog.Debug("loaded saved systems", "path", path, "count", len(systems))
	return systems, nil
}

// decodeSystems parses a whole document strictly: it must be a JSON array
// and every record must describe a well-formed system.
func decodeSystems(data []byte) ([]dynamo.Candidate, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New("document is not a JSON array")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	var systems []dynamo.Candidate
	if err := dec.Decode(&systems); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after systems array")
	}
	if systems == nil {
		systems = []dynamo.Candidate{}
	}

	for i, c := range systems {
		if err := validateRecord(c); err != nil {
			return nil, fmt.Errorf("system %d: %w", i, err)
		}
	}
	return systems, nil
}

func validateRecord(c dynamo.Candidate) error {
	if c.Dimensions < 1 {
		return fmt.Errorf("dimensions %d must be at least 1", c.Dimensions)
	}
	if want := config.TotalCoeffs(c.Dimensions); len(c.Coefficients) != want {
		return fmt.Errorf("has %d coefficients, want %d", len(c.Coefficients), want)
	}
	for j, p := range c.Points {
		if len(p) != c.Dimensions {
			return fmt.Errorf("point %d has %d coordinates, want %d", j, len(p), c.Dimensions)
		}
	}
	if _, err := c.Time(); err != nil {
		return fmt.Errorf("timestamp %q: %w", c.Timestamp, err)
	}
	if math.IsNaN(c.Lyapunov) || math.IsInf(c.Lyapunov, 0) {
		return fmt.Errorf("lyapunov %v is not finite", c.Lyapunov)
	}
	return nil
}

// SaveSystems overwrites the stored set. The document is written to a
// temporary file in the same directory and renamed into place.
func (s *Store) SaveSystems(ctx context.Context, set []dynamo.Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}

	if set == nil {
		set = []dynamo.Candidate{}
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("encode systems: %w", err)
	}

	tmp, err := os.CreateTemp(s.baseDir, ".systems-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.Path())
}

// Find looks a stored candidate up by full ID, ID prefix or timestamp. An
// ambiguous prefix is an error.
func (s *Store) Find(ref string) (dynamo.Candidate, error) {
	systems, err := s.LoadSystems()
	if err != nil {
		return dynamo.Candidate{}, err
	}
	return Find(systems, ref)
}

// Find searches set the way Store.Find searches the stored set.
func Find(set []dynamo.Candidate, ref string) (dynamo.Candidate, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return dynamo.Candidate{}, fmt.Errorf("%w: empty reference", dynamo.ErrNotFound)
	}

	var matches []dynamo.Candidate
	for _, c := range set {
		if c.ID == ref || c.Key() == ref {
			return c, nil
		}
		if strings.HasPrefix(c.ID, ref) || c.Timestamp == ref {
			matches = append(matches, c)
		}
	}

	switch len(matches) {
	case 0:
		return dynamo.Candidate{}, fmt.Errorf("%w: %q", dynamo.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	}
	return dynamo.Candidate{}, fmt.Errorf("reference %q is ambiguous: %d systems match", ref, len(matches))
}

// ExportCSV writes the trajectory of c with a step,x0..xn header.
func ExportCSV(w io.Writer, c dynamo.Candidate) error {
	cw := csv.NewWriter(w)

	header := []string{"step"}
	for i := 0; i < c.Dimensions; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, p := range c.Points {
		row := []string{strconv.Itoa(i)}
		for _, val := range p {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile exports c to path and reads the file back, failing when the
// trajectory on disk does not match the candidate's points. It returns the
// number of rows written.
func WriteCSVFile(path string, c dynamo.Candidate) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	if err := ExportCSV(f, c); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}

	f, err = os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	states, err := ReadCSV(f)
	if err != nil {
		return 0, fmt.Errorf("verify %s: %w", path, err)
	}
	if len(states) != len(c.Points) {
		return 0, fmt.Errorf("verify %s: read %d rows, wrote %d", path, len(states), len(c.Points))
	}
	for i, st := range states {
		if len(st) != len(c.Points[i]) {
			return 0, fmt.Errorf("verify %s: row %d has %d values, want %d", path, i, len(st), len(c.Points[i]))
		}
	}
	return len(states), nil
}

// ReadCSV parses a trajectory written by ExportCSV.
func ReadCSV(r io.Reader) ([]dynamo.State, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []dynamo.State{}, nil
	}

	states := make([]dynamo.State, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) < 2 {
			continue
		}

		state := make(dynamo.State, 0, len(record)-1)
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			state = append(state, val)
		}
		states = append(states, state)
	}

	return states, nil
}

// ExportJSON writes one candidate as indented JSON.
func ExportJSON(w io.Writer, c dynamo.Candidate) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
