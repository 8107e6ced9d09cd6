package output

import (
	"strconv"
	"time"

	"github.com/marmos91/fileshare/internal/bytesize"
)

// Listing is the set of names in one remote area.
type Listing struct {
	Area  string   `json:"area" yaml:"area"`
	Files []string `json:"files" yaml:"files"`
}

func (l Listing) Headers() []string {
	return []string{"#", "Name"}
}

func (l Listing) Rows() [][]string {
	rows := make([][]string, 0, len(l.Files))
	for i, name := range l.Files {
		rows = append(rows, []string{strconv.Itoa(i + 1), name})
	}
	return rows
}

// Transfer summarises one upload or download.
type Transfer struct {
	Operation string        `json:"operation" yaml:"operation"`
	Name      string        `json:"name" yaml:"name"`
	Path      string        `json:"path" yaml:"path"`
	Bytes     int64         `json:"bytes" yaml:"bytes"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration"`
}

func (t Transfer) Headers() []string {
	return []string{"Operation", "Name", "Path", "Size", "Time"}
}

func (t Transfer) Rows() [][]string {
	return [][]string{{
		t.Operation,
		t.Name,
		t.Path,
		bytesize.ByteSize(t.Bytes).String(),
		t.Duration.Round(time.Millisecond).String(),
	}}
}
