package core

type (
	// Logger args may be errors, maps or an Actor; an Actor identifies the caller.
	Logger interface {
		Debug(msg string, args ...interface{})
		Info(msg string, args ...interface{})
		Warn(msg string, args ...interface{})
		Error(msg string, args ...interface{})
		Fatal(msg string, args ...interface{})
	}

	Actor struct {
		ID       string
		Username string
		Email    string
	}
)
