package errs

import (
	"io"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"callrelay/internal/pkg/logx"
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard, zerolog.DebugLevel)
	os.Exit(m.Run())
}
