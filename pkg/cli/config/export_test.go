package config

// NewAuthForTest creates an Auth config for testing purposes
func NewAuthForTest(secret, issuer, noAuthUID string) *Auth {
	return &Auth{secret: secret, issuer: issuer, noAuthUID: noAuthUID}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, sqlitePath string) *Repository {
	return &Repository{backend: backend, sqlitePath: sqlitePath}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, apiURL string) *Slack {
	return &Slack{botToken: botToken, apiURL: apiURL}
}
