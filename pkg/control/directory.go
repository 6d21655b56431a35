package control

import (
	"fmt"
	"strings"
)

// DirectoryType selects the directory the server registers with.
type DirectoryType int

const (
	DirectoryNone DirectoryType = iota
	DirectoryDefault
	DirectoryAnyGenre2
	DirectoryAnyGenre3
	DirectoryRock
	DirectoryJazz
	DirectoryClassical
	DirectoryChoral
	DirectoryCustom
)

var directoryNames = map[DirectoryType]string{
	DirectoryNone:      "none",
	DirectoryDefault:   "default",
	DirectoryAnyGenre2: "anygenre2",
	DirectoryAnyGenre3: "anygenre3",
	DirectoryRock:      "rock",
	DirectoryJazz:      "jazz",
	DirectoryClassical: "classical",
	DirectoryChoral:    "choral",
	DirectoryCustom:    "custom",
}

var directoryHosts = map[DirectoryType]string{
	DirectoryDefault:   "anygenre1.jamulus.io:22124",
	DirectoryAnyGenre2: "anygenre2.jamulus.io:22224",
	DirectoryAnyGenre3: "anygenre3.jamulus.io:22624",
	DirectoryRock:      "rock.jamulus.io:22424",
	DirectoryJazz:      "jazz.jamulus.io:22324",
	DirectoryClassical: "classical.jamulus.io:22524",
	DirectoryChoral:    "choral.jamulus.io:22724",
}

func (t DirectoryType) String() string {
	if name, ok := directoryNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DirectoryType(%d)", int(t))
}

// ParseDirectoryType accepts the names used in configuration files.
func ParseDirectoryType(name string) (DirectoryType, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return DirectoryNone, nil
	}
	for t, n := range directoryNames {
		if n == key {
			return t, nil
		}
	}
	return DirectoryNone, fmt.Errorf("unknown directory type %q", name)
}

// DirectoryAddress resolves the host:port registered with. Custom uses the
// configured address; None yields "".
func DirectoryAddress(t DirectoryType, custom string) string {
	switch t {
	case DirectoryNone:
		return ""
	case DirectoryCustom:
		return strings.TrimSpace(custom)
	default:
		return directoryHosts[t]
	}
}
