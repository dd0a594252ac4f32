package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"collectd.szuro.net/pkg/api"
)

const (
	STDOUT = "stdout"
	STDERR = "stderr"
)

// Print writes value lists as PUTVAL lines.
type Print struct {
	baseSink
	out io.Writer
}

func NewPrint(opts Options) *Print {
	p := &Print{baseSink: newBaseSink(PRINT, opts)}
	if strings.EqualFold(opts.Connection, STDERR) {
		p.out = os.Stderr
	} else {
		p.out = os.Stdout
	}
	return p
}

func (p *Print) Write(ctx context.Context, vls []api.ValueList) error {
	var failed int
	var err error
	for _, vl := range p.accept(vls) {
		if _, werr := fmt.Fprintln(p.out, identifierLine(vl)); werr != nil {
			p.monitor.failed.Inc()
			failed++
			err = werr
			continue
		}
		p.monitor.sent.Inc()
	}
	if err != nil {
		return fmt.Errorf("%s: %d value lists not written: %w", p.name, failed, err)
	}
	return nil
}
