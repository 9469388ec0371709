// Package version describes an invaders binary: the revision it was built
// from, the frontends compiled in and the ROM layout it loads.
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"slices"
	"strings"

	"invaders/internal/rom"
)

// Set at build time via -ldflags "-X invaders/internal/version.Version=..."
var Version = "dev"

// Info is what a binary knows about its own build
type Info struct {
	Version   string
	Commit    string
	Modified  bool
	GoVersion string
	Platform  string
	Tags      []string
	Frontends []string
	Features  []string
}

// Read returns the build information of the running binary
func Read() Info {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fromSettings(runtime.Version(), nil)
	}
	return fromSettings(info.GoVersion, info.Settings)
}

func fromSettings(goVersion string, settings []debug.BuildSetting) Info {
	info := Info{
		Version:   Version,
		GoVersion: goVersion,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	for _, setting := range settings {
		switch setting.Key {
		case "-tags":
			for _, tag := range strings.Split(setting.Value, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					info.Tags = append(info.Tags, tag)
				}
			}
		case "vcs.revision":
			info.Commit = setting.Value
			if len(info.Commit) > 7 {
				info.Commit = info.Commit[:7]
			}
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}

	// The headless tag swaps the ebiten window for a stub
	if !slices.Contains(info.Tags, "headless") {
		info.Frontends = append(info.Frontends, "ebitengine")
	}
	if slices.Contains(info.Tags, "sdl") {
		info.Frontends = append(info.Frontends, "sdl")
	}
	info.Frontends = append(info.Frontends, "terminal", "headless")

	if slices.Contains(info.Tags, "statsview") {
		info.Features = append(info.Features, "statsview")
	}

	return info
}

// String returns the one line form, e.g. "invaders dev (a1b2c3d, modified) go1.23.4 linux/amd64"
func (i Info) String() string {
	s := "invaders " + i.Version
	switch {
	case i.Commit != "" && i.Modified:
		s += fmt.Sprintf(" (%s, modified)", i.Commit)
	case i.Commit != "":
		s += fmt.Sprintf(" (%s)", i.Commit)
	}
	return s + " " + i.GoVersion + " " + i.Platform
}

// Write prints the full build report
func (i Info) Write(w io.Writer) error {
	var parts []string
	for _, part := range rom.Parts {
		parts = append(parts, fmt.Sprintf("%s@0x%04X", part.Name, part.Address))
	}

	features := "none"
	if len(i.Features) > 0 {
		features = strings.Join(i.Features, ", ")
	}

	_, err := fmt.Fprintf(w, "%s\n"+
		"Frontends:   %s\n"+
		"Features:    %s\n"+
		"ROM parts:   %s (%d bytes each)\n"+
		"ROM image:   up to %d bytes\n",
		i, strings.Join(i.Frontends, ", "), features,
		strings.Join(parts, " "), rom.PartSize, rom.MaxSize)
	return err
}
