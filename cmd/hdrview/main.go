package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/vearutop/gainmap"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))
	gainmap.SetLogger(logger)

	var err error
	switch os.Args[1] {
	case "view":
		err = runView(os.Args[2:], logger)
	case "render":
		err = runRender(os.Args[2:], logger)
	case "inspect":
		err = runInspect(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fail(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: hdrview <command> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  view    -in uhdr.jpg [-config viewer.yaml] [-ratio 1]")
	fmt.Fprintln(os.Stderr, "  render  -in uhdr.jpg -ratio 2 -out out.png [-hdr out.hdr] [-tonemap reinhard05 -tonemap-out tm.png]")
	fmt.Fprintln(os.Stderr, "  inspect -in uhdr.jpg")
	fmt.Fprintln(os.Stderr, "        (or) -base base.png -gainmap gainmap.png -meta meta.yaml [-transfer srgb] instead of -in")
	fmt.Fprintln(os.Stderr, "Environment: HDRVIEW_DEBUG=1 enables debug logging.")
}

func logLevel() slog.Level {
	if os.Getenv("HDRVIEW_DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
