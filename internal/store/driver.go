package store

import (
	"database/sql"
	"regexp"
	"sync"

	"github.com/mattn/go-sqlite3"
)

// driverName is the sqlite3 driver extended with a regexp() function.
const driverName = "sqlite3_prequel"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", regexpMatch, true)
		},
	})
}

var regexpCache sync.Map // pattern -> *regexp.Regexp

// regexpMatch backs the SQL function regexp(pattern, value). Non-text
// values never match.
func regexpMatch(pattern string, value any) (int64, error) {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return 0, nil
	}

	re, err := compileCached(pattern)
	if err != nil {
		return 0, err
	}
	if re.MatchString(s) {
		return 1, nil
	}
	return 0, nil
}

func compileCached(pattern string) (*regexp.Regexp, error) {
	if re, ok := regexpCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	actual, _ := regexpCache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}
