package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/hachiemu/hachi/hachi"
	"github.com/hachiemu/hachi/hachi/backend"
	"github.com/hachiemu/hachi/hachi/backend/headless"
	"github.com/hachiemu/hachi/hachi/backend/terminal"
	"github.com/hachiemu/hachi/hachi/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "hachi"
	app.Description = "A cycle-accurate handheld emulator"
	app.Usage = "hachi [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "boot",
			Usage: "Path to a boot ROM image (optional)",
		},
		cli.StringFlag{
			Name:  "save",
			Usage: "Path to the battery save file (default: ROM path with .sav)",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run without a display",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.BoolFlag{
			Name:  "serial",
			Usage: "Print serial port output on exit (headless mode)",
		},
	}
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() == 0 {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
		romPath = c.Args().Get(0)
	}

	var opts []hachi.Option
	if bootPath := c.String("boot"); bootPath != "" {
		data, err := os.ReadFile(bootPath)
		if err != nil {
			return fmt.Errorf("reading boot image: %w", err)
		}
		opts = append(opts, hachi.WithBootROM(data))
	}

	emu, err := hachi.NewWithFile(romPath, opts...)
	if err != nil {
		return err
	}

	savePath := c.String("save")
	if savePath == "" {
		savePath = romPath + ".sav"
	}
	loadSave(emu, savePath)
	defer writeSave(emu, savePath)

	if c.Bool("headless") {
		frames := c.Int("frames")
		if frames <= 0 {
			return errors.New("headless mode requires --frames with a positive value")
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))

		err := runLoop(emu, headless.New(frames), timing.NewNoOpLimiter())
		if c.Bool("serial") {
			fmt.Fprintf(os.Stdout, "%s", emu.SerialOutput())
		}
		return err
	}

	return runLoop(emu, terminal.New(), timing.NewFrameLimiter())
}

func runLoop(emu *hachi.Emulator, b backend.Backend, limiter timing.Limiter) error {
	if err := b.Init(backend.Config{Title: "hachi"}); err != nil {
		return err
	}
	defer b.Cleanup()

	for {
		if err := emu.RunUntilFrame(); err != nil {
			return err
		}

		events, err := b.Update(emu.GetCurrentFrame())
		if err != nil {
			return err
		}
		for _, ev := range events {
			if ev.Quit {
				return nil
			}
			emu.SetButton(ev.Button, ev.Type == backend.Press)
		}

		limiter.WaitForNextFrame()
	}
}

func loadSave(emu *hachi.Emulator, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	emu.ImportSave(data)
	slog.Info("loaded battery save", "path", path, "bytes", len(data))
}

func writeSave(emu *hachi.Emulator, path string) {
	data := emu.ExportSave()
	if len(data) == 0 {
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		slog.Error("failed to write battery save", "path", path, "error", err)
		return
	}
	slog.Info("wrote battery save", "path", path, "bytes", len(data))
}
