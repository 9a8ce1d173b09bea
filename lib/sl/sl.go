package sl

import (
	"fmt"
	"log/slog"
	"strings"
)

func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Secret returns a string with the first 5 characters of the input string
// used to hide sensitive information in logs
func Secret(key, value string) slog.Attr {
	r := "***"
	if len(value) > 5 {
		r = fmt.Sprintf("%s***", value[0:5])
	}
	if value == "" {
		r = "?"
	}
	return slog.Attr{
		Key:   key,
		Value: slog.StringValue(r),
	}
}

// Email redacts the local part of an address, keeping the domain readable.
func Email(value string) slog.Attr {
	r := "?"
	if at := strings.LastIndex(value, "@"); at > 0 {
		r = value[0:1] + "***@" + value[at+1:]
	}
	return slog.Attr{
		Key:   "email",
		Value: slog.StringValue(r),
	}
}

func Module(mod string) slog.Attr {
	return slog.Attr{
		Key:   "mod",
		Value: slog.StringValue(mod),
	}
}
