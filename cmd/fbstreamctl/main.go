package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/eventbridge/internal/config"
	"github.com/danmuck/eventbridge/internal/fbstream"
	"github.com/danmuck/eventbridge/internal/observability"
	"github.com/danmuck/eventbridge/internal/protocol/wire"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

var errUsage = errors.New("usage: fbstreamctl [flags] start|play|pause|stop|sdp|<code>")

type options struct {
	socket   string
	layout   string
	ip       string
	vidport  int32
	audport  int32
	session  int64
	coalesce bool
	summary  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.socket, "socket", config.DefaultFbstreamSocket, "fbstream control socket")
	flag.StringVar(&opts.layout, "layout", "lp64", "record layout: lp64|ilp32|packed[-le|-be]")
	flag.StringVar(&opts.ip, "ip", "", "stream destination ipv4 address (start)")
	flag.Int32Var(&opts.vidport, "vidport", 0, "video rtp port (start)")
	flag.Int32Var(&opts.audport, "audport", 0, "audio rtp port (start)")
	flag.Int64Var(&opts.session, "session", 0, "session id")
	flag.BoolVar(&opts.coalesce, "coalesce", false, "send START and its init record in one write")
	flag.BoolVar(&opts.summary, "summary", false, "print a media summary instead of the raw sdp")
	flag.Parse()

	observability.InitLogger("fbstreamctl")
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, errUsage)
		os.Exit(2)
	}
	if err := run(opts, flag.Arg(0), os.Stdout); err != nil {
		log.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("fbstream command failed")
	}
}

func run(opts options, arg string, out io.Writer) error {
	cmd, err := parseCommand(arg)
	if err != nil {
		return err
	}
	layout, err := wire.LayoutByName(opts.layout)
	if err != nil {
		return err
	}
	client, err := fbstream.Dial(opts.socket, fbstream.Options{Layout: layout, CoalesceStart: opts.coalesce})
	if err != nil {
		return err
	}
	defer client.Close()
	return execute(client, cmd, opts, out)
}

func execute(client *fbstream.Client, cmd wire.Command, opts options, out io.Writer) error {
	switch cmd {
	case wire.CmdStart:
		return client.Start(opts.session, wire.FbstreamInit{IP: opts.ip, VideoPort: opts.vidport, AudioPort: opts.audport})
	case wire.CmdPrintSDP:
		raw, err := client.PrintSDP(opts.session)
		if err != nil {
			return err
		}
		if !opts.summary {
			_, err = io.WriteString(out, raw)
			return err
		}
		desc, err := fbstream.ParseSDP(raw)
		if err != nil {
			return err
		}
		for _, m := range fbstream.Summarize(desc) {
			fmt.Fprintf(out, "%s %s:%d %s %s\n", m.Type, m.Address, m.Port, m.Protocol, strings.Join(m.Formats, ","))
		}
		return nil
	default:
		_, err := client.Send(wire.FbstreamCommand{Cmd: cmd, SessionID: opts.session}, nil)
		return err
	}
}

func parseCommand(raw string) (wire.Command, error) {
	cmd, err := wire.ParseCommand(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errUsage, err)
	}
	return cmd, nil
}
