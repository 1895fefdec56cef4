package logging_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tally/pkg/utils/logging"
)

func TestParseLogLevel(t *testing.T) {
	testCases := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "INFO", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: "Warning", want: slog.LevelWarn},
		{input: "CRITICAL", want: slog.LevelError},
		{input: "verbose", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			level, err := logging.ParseLogLevel(tc.input)
			if tc.wantErr {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err)
			gt.Equal(t, level, tc.want)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := logging.ParseFormat("JSON")
	gt.NoError(t, err)
	gt.Equal(t, f, logging.FormatJSON)

	f, err = logging.ParseFormat("")
	gt.NoError(t, err)
	gt.Equal(t, f, logging.FormatAuto)

	_, err = logging.ParseFormat("xml")
	gt.Error(t, err)
}

func TestNewLogger_NonTerminalWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(slog.LevelInfo, &buf)

	logger.Debug("hidden")
	logger.Info("dataset loaded", "records", 3)

	gt.S(t, buf.String()).Contains(`"msg":"dataset loaded"`)
	gt.S(t, buf.String()).Contains(`"records":3`)
	gt.False(t, bytes.Contains(buf.Bytes(), []byte("hidden")))
}
