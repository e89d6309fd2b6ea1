package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"vang/audio"
	"vang/beep"
	"vang/heritage"
	"vang/log"
	"vang/shutdown"
)

var version = "dev"

func main() {
	run()
}

func run() {
	compactFlag := flag.Bool("compact", false, "Run the compact caption surface instead of the full chat TUI")
	characterFlag := flag.String("character", "", "Character ID to talk to (overrides VANG_CHARACTER)")
	nameFlag := flag.String("name", "Linh", "Display name for the companion")
	levelFlag := flag.String("level", "", "Heritage level ID for scoping history and context")
	deviceFlag := flag.String("device", "", "Use named microphone device (substring match)")
	quietFlag := flag.Bool("quiet", false, "Disable audio cues")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("vang %s\n", version)
		os.Exit(0)
	}

	// .env is optional; real env vars win either way.
	godotenv.Load()

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer log.Close()

	apiBase := os.Getenv("VANG_API_BASE")
	if apiBase == "" {
		fmt.Fprintln(os.Stderr, "Error: VANG_API_BASE is not set (platform API base URL)")
		os.Exit(1)
	}
	apiKey := os.Getenv("VANG_API_KEY")

	characterID := *characterFlag
	if characterID == "" {
		characterID = os.Getenv("VANG_CHARACTER")
	}
	if characterID == "" {
		fmt.Fprintln(os.Stderr, "Error: no character selected (use -character or VANG_CHARACTER)")
		os.Exit(1)
	}

	if *quietFlag {
		beep.Disable()
	}
	go beep.Init()

	actx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: audio init: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	device := pickDevice(actx, *deviceFlag)

	client := heritage.NewClient(apiBase, apiKey, log.Logger())
	app, err := NewApp(client, actx, programSink{}, characterID, *levelFlag, device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var program = NewTUIProgram(app, *nameFlag)
	if *compactFlag {
		program = NewCaptionProgram(app, *nameFlag)
	}
	uiMu.Lock()
	uiProgram = program
	uiMu.Unlock()

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		program.Quit()
	}()

	log.Infof("vang %s starting, character=%s", version, characterID)
	go app.LoadHistory(context.Background())

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	app.Shutdown()
	log.Info("shutdown complete")
}

// pickDevice resolves -device against the available microphones. A miss
// falls back to the system default with a warning rather than aborting.
func pickDevice(actx audio.Context, name string) *audio.DeviceInfo {
	if name == "" {
		return nil
	}
	devices, err := actx.Devices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not list microphones: %v\n", err)
		return nil
	}
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), strings.ToLower(name)) {
			return &devices[i]
		}
	}
	fmt.Fprintf(os.Stderr, "Warning: microphone %q not found, using system default\n", name)
	return nil
}
