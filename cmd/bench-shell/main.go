// Command bench-shell is an interactive SCPI console against one
// instrument.
//
// Usage:
//
//	bench-shell -address <visa-address> [flags]
//
// Flags:
//
//	-address string  VISA resource address (required)
//	-gpib string     Serial port of a Prologix GPIB controller
//	-retry int       Retry limit for transient faults (default 0)
//	-timeout duration  I/O timeout (default 1s)
//	-trace string    Append a CBOR traffic log to this file
//
// Interactive Commands:
//
//	<scpi command>   - Write; commands ending in '?' are queried
//	read             - Read a pending response
//	idn              - Print the identification string
//	timeout [dur]    - Show or set the I/O timeout
//	clear            - Clear device buffers
//	reset            - Issue *RST
//	local            - Return the instrument to front-panel control
//	quit             - Exit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/benchkit-project/benchkit-go/pkg/resource"
	"github.com/benchkit-project/benchkit-go/pkg/trace"
	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

func main() {
	var (
		address   = flag.String("address", "", "VISA resource address")
		gpib      = flag.String("gpib", "", "serial port of a Prologix GPIB controller")
		retry     = flag.Int("retry", 0, "retry limit for transient faults")
		timeout   = flag.Duration("timeout", time.Second, "I/O timeout")
		traceFile = flag.String("trace", "", "append a CBOR traffic log to this file")
	)
	flag.Parse()

	if *address == "" {
		log.Fatal("missing -address")
	}

	mgr := visa.NewDefaultManager(nil)
	if *gpib != "" {
		mgr.Register(visa.InterfaceGPIB, visa.NewPrologixOpener(*gpib))
	}

	opts := []resource.Option{
		resource.WithIOTimeout(*timeout),
		resource.WithRetryLimit(*retry),
	}
	if *traceFile != "" {
		tl, err := trace.NewFileLogger(*traceFile)
		if err != nil {
			log.Fatalf("open trace log: %v", err)
		}
		defer tl.Close()
		opts = append(opts, resource.WithTracer(tl))
	}

	res, err := resource.Open(context.Background(), mgr, *address, opts...)
	if err != nil {
		log.Fatalf("open %s: %v", *address, err)
	}
	defer res.Close()

	fmt.Println(res.IDN())

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "scpi> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Fatalf("failed to create readline: %v", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if done := execute(rl, res, input); done {
			return
		}
	}
}

// execute runs one console command; returns true to exit the loop.
func execute(rl *readline.Instance, res *resource.Resource, input string) bool {
	out := rl.Stdout()
	fields := strings.Fields(input)

	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return true

	case "read":
		resp, err := res.Read()
		report(out, resp, err)

	case "idn":
		fmt.Fprintln(out, res.IDN())

	case "timeout":
		if len(fields) == 1 {
			fmt.Fprintln(out, res.Timeout())
			break
		}
		d, err := time.ParseDuration(fields[1])
		if err != nil {
			fmt.Fprintf(out, "bad duration %q: %v\n", fields[1], err)
			break
		}
		res.SetTimeout(d)

	case "clear":
		report(out, "", res.Clear())

	case "reset":
		report(out, "", res.Reset())

	case "local":
		res.SetLocal()

	default:
		// Raw SCPI. Queries carry a '?'.
		if strings.Contains(input, "?") {
			resp, err := res.Query(input)
			report(out, resp, err)
			break
		}
		report(out, "", res.Write(input))
	}
	return false
}

func report(out io.Writer, resp string, err error) {
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	if resp != "" {
		fmt.Fprintln(out, resp)
	}
}
