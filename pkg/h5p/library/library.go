// Package library parses content-type library identifiers of the form
// "MachineName major.minor".
package library

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidName indicates a library string that is not "MachineName major.minor".
var ErrInvalidName = errors.New("invalid library string")

var namePattern = regexp.MustCompile(`^(.+)\s(\d+)\.(\d+)$`)

// Info describes one versioned content-type library.
type Info struct {
	VersionedName         string `json:"versionedName"`
	VersionedNameNoSpaces string `json:"versionedNameNoSpaces"`
	MachineName           string `json:"machineName"`
	MajorVersion          int    `json:"majorVersion"`
	MinorVersion          int    `json:"minorVersion"`
}

// Parse splits a library string into machine name and version.
func Parse(name string) (Info, error) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return Info{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	major, err := strconv.Atoi(m[2])
	if err != nil {
		return Info{}, fmt.Errorf("%w: %q: %v", ErrInvalidName, name, err)
	}
	minor, err := strconv.Atoi(m[3])
	if err != nil {
		return Info{}, fmt.Errorf("%w: %q: %v", ErrInvalidName, name, err)
	}
	return New(m[1], major, minor), nil
}

// New builds an Info from its parts.
func New(machineName string, major, minor int) Info {
	return Info{
		VersionedName:         fmt.Sprintf("%s %d.%d", machineName, major, minor),
		VersionedNameNoSpaces: fmt.Sprintf("%s-%d.%d", machineName, major, minor),
		MachineName:           machineName,
		MajorVersion:          major,
		MinorVersion:          minor,
	}
}

// String returns the versioned name.
func (i Info) String() string {
	return i.VersionedName
}
