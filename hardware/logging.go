package hardware

// Logger surfaces registry activity through the host's structured logger.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// nullLogger discards all log messages
type nullLogger struct{}

func (nullLogger) Debug(msg string, args ...interface{}) {}
func (nullLogger) Info(msg string, args ...interface{})  {}
func (nullLogger) Warn(msg string, args ...interface{})  {}
func (nullLogger) Error(msg string, args ...interface{}) {}

var log Logger = nullLogger{}

// SetLogger injects the structured logger from the host application.
func SetLogger(l Logger) {
	if l != nil {
		log = l
	}
}
