package outputarchive

import (
	"encoding/json"
	"fmt"

	"github.com/paulschiretz/pgl-imagecompressor/pkg/util"
)

// Format represents the container format of the output archive.
type Format string

const (
	Zip    Format = "zip"
	TarGz  Format = "tar.gz"
	TarZst Format = "tar.zst"
)

var formatToString = map[Format]string{
	Zip:    "zip",
	TarGz:  "tar.gz",
	TarZst: "tar.zst",
}

var stringToFormat map[string]Format

func init() {
	stringToFormat = util.InvertMap(formatToString)
}

func (f Format) String() string {
	if str, ok := formatToString[f]; ok {
		return str
	}
	return fmt.Sprintf("unknown_archive_format(%s)", string(f))
}

// Ext returns the file extension of the format, including the leading dot.
func (f Format) Ext() string {
	return "." + f.String()
}

func ParseFormat(s string) (Format, error) {
	if format, ok := stringToFormat[s]; ok {
		return format, nil
	}
	return "", fmt.Errorf("invalid archive format: %q. Must be 'zip', 'tar.gz', or 'tar.zst'", s)
}

// MarshalJSON implements the json.Marshaler interface for Format.
func (f Format) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for Format.
func (f *Format) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("archive format should be a string, got %s", data)
	}
	format, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = format
	return nil
}
