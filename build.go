//go:build ignore

// build.go - gfrcli build system
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, gfr, web, test, clean, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	version = "1.0.0"
	module  = "gfrcli"
)

var (
	distDir = "dist"

	// Executable names (key = cmd directory, value = output name)
	executables = map[string]string{
		"gfr": "gfr",
		"web": "gfr-web",
	}

	// Release platforms as GOOS/GOARCH
	platforms = []string{"linux/amd64", "linux/arm64", "darwin/arm64", "windows/amd64"}

	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	printHeader()
	startTime := time.Now()

	var err error
	switch *target {
	case "all":
		for name := range executables {
			if err = buildExecutable(name, runtime.GOOS, runtime.GOARCH, *verbose); err != nil {
				break
			}
		}
	case "gfr", "web":
		err = buildExecutable(*target, runtime.GOOS, runtime.GOARCH, *verbose)
	case "test":
		err = runTests(*verbose)
	case "clean":
		err = os.RemoveAll(distDir)
	case "release":
		err = buildRelease(*verbose)
	default:
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "          gfrcli - Build System            " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

// buildExecutable compiles ./cmd/<name> for goos/goarch into distDir
func buildExecutable(name, goos, goarch string, verbose bool) error {
	exeName, ok := executables[name]
	if !ok {
		return fmt.Errorf("unknown executable: %s", name)
	}
	if goos == "windows" {
		exeName += ".exe"
	}

	outDir := distDir
	if goos != runtime.GOOS || goarch != runtime.GOARCH {
		outDir = filepath.Join(distDir, goos+"_"+goarch)
	}
	outputPath := filepath.Join(outDir, exeName)
	printInfo(fmt.Sprintf("Building %s (%s/%s)...", name, goos, goarch))

	ldflags := fmt.Sprintf("-s -w -X %s/internal/config.AppVersion=%s", module, version)
	args := []string{"build", "-trimpath", "-ldflags", ldflags, "-o", outputPath, "./cmd/" + name}
	if verbose {
		args = append([]string{"build", "-v"}, args[1:]...)
		fmt.Printf("go %s\n", strings.Join(args, " "))
	}

	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(), "GOOS="+goos, "GOARCH="+goarch, "CGO_ENABLED=0")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to build %s: %w", name, err)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", outputPath, float64(info.Size())/1024/1024))
	}
	return nil
}

func runTests(verbose bool) error {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go tests failed: %w", err)
	}
	return nil
}

func buildRelease(verbose bool) error {
	printInfo("Building release binaries...")
	for _, platform := range platforms {
		goos, goarch, _ := strings.Cut(platform, "/")
		for name := range executables {
			if err := buildExecutable(name, goos, goarch, verbose); err != nil {
				return err
			}
		}
	}
	return nil
}

func showHelp() {
	fmt.Println("Usage: go run build.go -target=TARGET [-v]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all      Build gfr and gfr-web for this platform (default)")
	fmt.Println("  gfr      Build the batch CLI")
	fmt.Println("  web      Build the HTTP server")
	fmt.Println("  test     Run all Go tests with the race detector")
	fmt.Println("  clean    Remove build artifacts")
	fmt.Println("  release  Cross-compile for " + strings.Join(platforms, ", "))
}
