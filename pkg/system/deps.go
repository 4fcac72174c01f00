package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// DependencyStatus describes one external tool probe result.
type DependencyStatus struct {
	Name        string    `json:"name"`
	Required    bool      `json:"required"`
	Available   bool      `json:"available"`
	Version     string    `json:"version"`
	Path        string    `json:"path"`
	UsedBy      []string  `json:"used_by"`
	LastChecked time.Time `json:"last_checked"`
	Error       string    `json:"error,omitempty"`
}

// DependencyManager discovers the external tools the engine shells out to.
type DependencyManager interface {
	CheckDependency(name string) DependencyStatus
	CheckAll() map[string]DependencyStatus
	GetInstallInstructions(name string) []string
	ClearCache()
}

// toolScanner implements DependencyManager with a TTL cache so repeated
// checks within one invocation do not spawn the same version probes again.
type toolScanner struct {
	defs  map[string]DependencyDefinition
	mu    sync.RWMutex
	cache map[string]DependencyStatus
	ttl   time.Duration
}

// NewDependencyManager creates a scanner for the given SDK root. Tools
// shipped inside the SDK (sdkmanager, avdmanager, adb, emulator) are looked
// up under sdkRoot before falling back to PATH and common locations.
func NewDependencyManager(sdkRoot string) DependencyManager {
	return &toolScanner{
		defs:  buildDependencyDefinitions(sdkRoot),
		cache: make(map[string]DependencyStatus),
		ttl:   5 * time.Minute,
	}
}

// DependencyDefinition defines where a tool may live and how to probe it.
type DependencyDefinition struct {
	Name        string
	Required    bool
	UsedBy      []string
	Description string
	Executables []string
	CommonPaths []string
	VersionArgs []string
}

func buildDependencyDefinitions(sdkRoot string) map[string]DependencyDefinition {
	exe := func(name string) string {
		if runtime.GOOS == "windows" {
			return name + ".exe"
		}
		return name
	}
	script := func(name string) string {
		if runtime.GOOS == "windows" {
			return name + ".bat"
		}
		return name
	}

	return map[string]DependencyDefinition{
		"java": {
			Name:        "java",
			Required:    true,
			UsedBy:      []string{"ensure", "avd", "ndk install"},
			Description: "Java runtime - required by sdkmanager and avdmanager",
			Executables: []string{exe("java")},
			CommonPaths: getCommonJavaPaths(),
			VersionArgs: []string{"-version"},
		},
		"sdkmanager": {
			Name:        "sdkmanager",
			Required:    false,
			UsedBy:      []string{"ensure", "list", "ndk install"},
			Description: "Android SDK package manager",
			Executables: []string{script("sdkmanager")},
			CommonPaths: []string{
				filepath.Join(sdkRoot, "cmdline-tools", "latest", "bin", script("sdkmanager")),
				filepath.Join(sdkRoot, "cmdline-tools", "*", "bin", script("sdkmanager")),
				filepath.Join(sdkRoot, "tools", "bin", script("sdkmanager")),
			},
			VersionArgs: []string{"--version"},
		},
		"avdmanager": {
			Name:        "avdmanager",
			Required:    false,
			UsedBy:      []string{"ensure", "avd"},
			Description: "Android virtual device manager",
			Executables: []string{script("avdmanager")},
			CommonPaths: []string{
				filepath.Join(sdkRoot, "cmdline-tools", "latest", "bin", script("avdmanager")),
				filepath.Join(sdkRoot, "cmdline-tools", "*", "bin", script("avdmanager")),
				filepath.Join(sdkRoot, "tools", "bin", script("avdmanager")),
			},
			// avdmanager has no version flag; presence is enough.
			VersionArgs: nil,
		},
		"adb": {
			Name:        "adb",
			Required:    false,
			UsedBy:      []string{"doctor"},
			Description: "Android Debug Bridge",
			Executables: []string{exe("adb")},
			CommonPaths: []string{
				filepath.Join(sdkRoot, "platform-tools", exe("adb")),
			},
			VersionArgs: []string{"version"},
		},
		"emulator": {
			Name:        "emulator",
			Required:    false,
			UsedBy:      []string{"avd"},
			Description: "Android emulator launcher",
			Executables: []string{exe("emulator")},
			CommonPaths: []string{
				filepath.Join(sdkRoot, "emulator", exe("emulator")),
			},
			VersionArgs: []string{"-version"},
		},
	}
}

// CheckDependency reports the status of one tool, served from cache while
// fresh.
func (ts *toolScanner) CheckDependency(name string) DependencyStatus {
	if status, ok := ts.cached(name); ok {
		return status
	}

	def, known := ts.defs[name]
	if !known {
		return DependencyStatus{
			Name:        name,
			Error:       "Unknown dependency",
			LastChecked: time.Now(),
		}
	}

	status := ts.scan(def)

	ts.mu.Lock()
	ts.cache[name] = status
	ts.mu.Unlock()
	return status
}

func (ts *toolScanner) cached(name string) (DependencyStatus, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	status, ok := ts.cache[name]
	if !ok || time.Since(status.LastChecked) >= ts.ttl {
		return DependencyStatus{}, false
	}
	return status, true
}

// scan probes every candidate location in priority order. A candidate counts
// only when its version probe succeeds, so a broken shim does not shadow a
// working install further down the list.
func (ts *toolScanner) scan(def DependencyDefinition) DependencyStatus {
	status := DependencyStatus{
		Name:        def.Name,
		Required:    def.Required,
		UsedBy:      def.UsedBy,
		LastChecked: time.Now(),
	}

	for _, candidate := range candidatePaths(def) {
		version := probeTool(candidate, def.VersionArgs)
		if version == "" {
			continue
		}
		status.Available = true
		status.Path = candidate
		status.Version = version
		return status
	}

	status.Error = fmt.Sprintf("%s not found under the SDK root, on PATH or in common locations", def.Name)
	return status
}

// candidatePaths lists existing locations to probe. SDK-local locations win
// over PATH so the discovered tool matches the root this invocation manages.
func candidatePaths(def DependencyDefinition) []string {
	var candidates []string

	for _, location := range def.CommonPaths {
		if strings.Contains(location, "*") {
			if matches, err := filepath.Glob(location); err == nil {
				candidates = append(candidates, matches...)
			}
			continue
		}
		if _, err := os.Stat(location); err == nil {
			candidates = append(candidates, location)
		}
	}

	for _, executable := range def.Executables {
		if path, err := exec.LookPath(executable); err == nil {
			candidates = append(candidates, path)
		}
	}

	return candidates
}

// probeTool runs the tool's version command and returns the banner line.
// Tools that print the banner to stderr (java) are covered by the combined
// capture. An empty result means the probe failed; tools without a version
// flag report "unknown" on presence alone.
func probeTool(path string, versionArgs []string) string {
	if len(versionArgs) == 0 {
		return "unknown"
	}

	out, err := exec.Command(path, versionArgs...).CombinedOutput()
	if err != nil {
		return ""
	}

	banner := string(out)
	if i := strings.IndexByte(banner, '\n'); i >= 0 {
		banner = banner[:i]
	}
	if banner = strings.TrimSpace(banner); banner != "" {
		return banner
	}
	return "unknown"
}

// CheckAll probes every known tool.
func (ts *toolScanner) CheckAll() map[string]DependencyStatus {
	result := make(map[string]DependencyStatus, len(ts.defs))
	for name := range ts.defs {
		result[name] = ts.CheckDependency(name)
	}
	return result
}

// GetInstallInstructions suggests how to obtain a missing tool. SDK-shipped
// tools point back at the ensure command since converging installs them.
func (ts *toolScanner) GetInstallInstructions(name string) []string {
	switch name {
	case "java":
		return getJavaInstallInstructions()
	case "sdkmanager", "avdmanager":
		return []string{
			"Run 'sdkforge ensure' to bootstrap the command-line tools",
			"Manual: download command-line tools from https://developer.android.com/studio#command-tools",
		}
	case "adb":
		return []string{
			"Run 'sdkforge ensure --platform-tools' to install platform-tools",
		}
	case "emulator":
		return []string{
			"Run 'sdkforge ensure --emulator' to install the emulator",
		}
	default:
		return []string{"Unknown dependency: " + name}
	}
}

// ClearCache drops all cached probe results.
func (ts *toolScanner) ClearCache() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.cache = make(map[string]DependencyStatus)
}

// getCommonJavaPaths lists likely java binaries outside PATH. JAVA_HOME wins
// when set.
func getCommonJavaPaths() []string {
	var paths []string

	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		bin := "java"
		if runtime.GOOS == "windows" {
			bin = "java.exe"
		}
		paths = append(paths, filepath.Join(javaHome, "bin", bin))
	}

	switch runtime.GOOS {
	case "linux":
		paths = append(paths,
			"/usr/bin/java",
			"/usr/local/bin/java",
			"/usr/lib/jvm/*/bin/java",
		)
	case "darwin":
		paths = append(paths,
			"/usr/bin/java",
			"/opt/homebrew/opt/openjdk/bin/java",
			"/Library/Java/JavaVirtualMachines/*/Contents/Home/bin/java",
		)
	case "windows":
		if programFiles := os.Getenv("ProgramFiles"); programFiles != "" {
			paths = append(paths,
				filepath.Join(programFiles, "Java", "*", "bin", "java.exe"),
				filepath.Join(programFiles, "Android", "Android Studio", "jbr", "bin", "java.exe"),
			)
		}
	}

	return paths
}

func getJavaInstallInstructions() []string {
	switch runtime.GOOS {
	case "linux":
		return []string{
			"Ubuntu/Debian: sudo apt-get install openjdk-17-jre-headless",
			"Fedora: sudo dnf install java-17-openjdk",
			"Manual: https://adoptium.net",
		}
	case "darwin":
		return []string{
			"Homebrew: brew install openjdk@17",
			"Manual: https://adoptium.net",
		}
	case "windows":
		return []string{
			"winget install EclipseAdoptium.Temurin.17.JRE",
			"Manual: https://adoptium.net",
		}
	default:
		return []string{
			"Install a Java 17 runtime from https://adoptium.net",
		}
	}
}
