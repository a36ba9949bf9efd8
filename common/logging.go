// Package common provides the gateway's root logrus instance and its container-friendly
// output routing: error-level lines go to stderr, everything else to stdout, so an
// orchestrator can apply different handling per stream without parsing levels itself.
package common

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes logrus's formatted output to stderr for error-level lines and
// stdout for everything else, by matching the literal "level=error" logrus emits.
type OutputSplitter struct{}

func (splitter *OutputSplitter) Write(p []byte) (n int, err error) {
	if bytes.Contains(p, []byte("level=error")) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the gateway's root logrus instance. cli.loadConfig applies the configured
// level/format to it at startup; every other component receives a *logrus.Entry derived
// from it rather than reaching for this global directly (spec's "no hidden globals" rule
// for process-wide singletons).
var Logger = logrus.New()

func init() {
	Logger.SetOutput(&OutputSplitter{})
}
