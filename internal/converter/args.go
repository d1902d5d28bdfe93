// Package converter builds and runs the OSM2Graphium and IDF2Graphium
// command lines that turn OSM or GIP data into Graphium JSON.
package converter

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/graphium/internal/connection"
	"github.com/google/shlex"
)

// ValidityFormat is the layout of the -vf/-vt arguments.
const ValidityFormat = "2006-01-02 15:04"

// Common holds the arguments shared by both converters.
type Common struct {
	Java      string
	JavaOpts  string
	Jar       string
	Input     string
	OutputDir string
	Name      string
	Version   string
	ValidFrom time.Time
	ValidTo   time.Time

	KeepConvertedFile bool

	// Import, when set, makes the converter upload the result to this connection.
	Import           *connection.Connection
	OverrideIfExists bool
}

// OutputFile is where the converter writes its Graphium JSON.
func (c Common) OutputFile() string {
	return filepath.Join(c.OutputDir, c.Name+"_"+c.Version+".json")
}

// ImportURL is the upload endpoint passed as --importUrl.
func (c Common) ImportURL() string {
	if c.Import == nil {
		return ""
	}
	return fmt.Sprintf("%s/segments/graphs/%s/versions/%s?overrideIfExists=%s",
		c.Import.URL(), url.PathEscape(c.Name), url.PathEscape(c.Version), strconv.FormatBool(c.OverrideIfExists))
}

func (c Common) validate() error {
	switch {
	case c.Jar == "":
		return fmt.Errorf("converter jar not configured")
	case c.Input == "":
		return fmt.Errorf("input file is required")
	case c.OutputDir == "":
		return fmt.Errorf("output directory is required")
	case c.Name == "" || c.Version == "":
		return fmt.Errorf("graph name and version are required")
	case !c.ValidFrom.IsZero() && !c.ValidTo.IsZero() && !c.ValidTo.After(c.ValidFrom):
		return fmt.Errorf("valid-to must be after valid-from")
	}
	return nil
}

func (c Common) base() ([]string, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	java := c.Java
	if java == "" {
		java = "java"
	}
	args := []string{java}
	if strings.TrimSpace(c.JavaOpts) != "" {
		opts, err := shlex.Split(c.JavaOpts)
		if err != nil {
			return nil, fmt.Errorf("parsing java options: %w", err)
		}
		args = append(args, opts...)
	}
	args = append(args, "-jar", c.Jar,
		"-i", c.Input,
		"-o", c.OutputDir,
		"-n", c.Name,
		"-v", c.Version,
	)
	if !c.ValidFrom.IsZero() {
		args = append(args, "-vf", c.ValidFrom.Format(ValidityFormat))
	}
	if !c.ValidTo.IsZero() {
		args = append(args, "-vt", c.ValidTo.Format(ValidityFormat))
	}
	return args, nil
}

func (c Common) tail(args []string) []string {
	args = append(args, "--keepConvertedFile", strconv.FormatBool(c.KeepConvertedFile))
	if u := c.ImportURL(); u != "" {
		args = append(args, "--importUrl", u)
	}
	return args
}

// ParseValidity parses a -vf/-vt value.
func ParseValidity(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(ValidityFormat, s, time.Local)
}

// OSMOptions configures OSM2Graphium.
type OSMOptions struct {
	Common
	HighwayTypes []HighwayType
	AllTags      bool
}

func (o OSMOptions) Args() ([]string, error) {
	args, err := o.base()
	if err != nil {
		return nil, err
	}
	if len(o.HighwayTypes) > 0 {
		names := make([]string, len(o.HighwayTypes))
		for i, h := range o.HighwayTypes {
			names[i] = string(h)
		}
		args = append(args, "--highwayTypes", strings.Join(names, ", "))
	}
	tags := "none"
	if o.AllTags {
		tags = "all"
	}
	args = append(args, "--tags", tags)
	return o.tail(args), nil
}

// GIPOptions configures IDF2Graphium.
type GIPOptions struct {
	Common
	FRCs         []FRC
	AccessTypes  []Access
	SkipPixelCut bool
}

func (o GIPOptions) Args() ([]string, error) {
	args, err := o.base()
	if err != nil {
		return nil, err
	}
	if len(o.FRCs) > 0 {
		vals := make([]string, len(o.FRCs))
		for i, f := range o.FRCs {
			vals[i] = strconv.Itoa(int(f))
		}
		args = append(args, "--import-frcs", strings.Join(vals, ","))
	}
	if len(o.AccessTypes) > 0 {
		vals := make([]string, len(o.AccessTypes))
		for i, a := range o.AccessTypes {
			vals[i] = a.String()
		}
		args = append(args, "--access-types", strings.Join(vals, ","))
	}
	if o.SkipPixelCut {
		args = append(args, "--skip-pixel-cut")
	}
	return o.tail(args), nil
}
