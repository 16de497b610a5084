package storage

import (
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DefaultDriver is the pure Go driver, available in every build.
const DefaultDriver = "sqlite"

type sqlDriver struct {
	name string
	dsn  func(path string, busyTimeoutMs int) string
}

var drivers = map[string]sqlDriver{
	"sqlite": {name: "sqlite", dsn: modernDSN},
}

func registerDriver(d sqlDriver) {
	drivers[d.name] = d
}

// Drivers lists the SQL drivers compiled into this binary.
func Drivers() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupDriver(name string) (sqlDriver, error) {
	if name == "" {
		name = DefaultDriver
	}
	d, ok := drivers[name]
	if !ok {
		return sqlDriver{}, fmt.Errorf("sql driver %q is not available in this build (have: %s)",
			name, strings.Join(Drivers(), ", "))
	}
	return d, nil
}

// modernDSN encodes pragmas as _pragma query parameters, which
// modernc.org/sqlite runs on every new connection.
func modernDSN(path string, busyTimeoutMs int) string {
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)",
		path, busyTimeoutMs)
}
