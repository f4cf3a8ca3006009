package monitor

// Credentials are the optional upstream login secrets. both empty means
// anonymous-only mode.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) Present() bool {
	return c.Username != "" && c.Password != ""
}

// Config is built once by the command layer and passed in at construction
// time. nothing in this package reads toggles from anywhere else.
type Config struct {
	// directory the per-handle artifacts are written to
	OutputDir string `json:"output_dir"`
	// history ledger retention, defaults to 100
	HistoryLimit int `json:"history_limit"`
	// where session cookie files live, defaults to OutputDir
	SessionDir  string      `json:"session_dir"`
	Credentials Credentials `json:"credentials"`
	// ephemeral processes (CI) never persist session state to disk
	Ephemeral bool `json:"ephemeral"`
	// byte-compare archived profile pictures on every run
	TrackPictures bool `json:"track_pictures"`
}

const DefaultHistoryLimit = 100

func (c Config) withDefaults() Config {
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.SessionDir == "" {
		c.SessionDir = c.OutputDir
	}
	return c
}
