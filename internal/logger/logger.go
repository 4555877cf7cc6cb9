package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configura o logger global. pretty=true usa saída colorida para
// desenvolvimento local; caso contrário, JSON em stdout.
func Setup(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// Component devolve um logger filho com o campo component preenchido.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// MaskEmail: "joao.silva@x.com" -> "jo***@x.com"
func MaskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	if len(parts[0]) > 2 {
		return parts[0][:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// MaskPhone keeps the last four digits.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
