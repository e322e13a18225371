package version

import "fmt"

// Заполняются через -ldflags "-X .../internal/version.version=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Build — метаданные сборки витрины.
type Build struct {
	Version string
	Commit  string
	Date    string
}

func Current() Build {
	return Build{Version: version, Commit: commit, Date: date}
}

// GetVersion возвращает версию сборки.
func GetVersion() string { return version }

// Short — версия и первые 7 символов коммита, для заголовков и ClientID.
func (b Build) Short() string {
	c := b.Commit
	if len(c) > 7 {
		c = c[:7]
	}
	return b.Version + "+" + c
}

func (b Build) String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", b.Version, b.Commit, b.Date)
}

// String описывает текущую сборку для логов.
func String() string { return Current().String() }
