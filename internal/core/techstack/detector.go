package techstack

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"
)

// Family は言語ファミリーです
type Family string

const (
	FamilyJavaScript Family = "javascript"
	FamilyPython     Family = "python"
	FamilyRuby       Family = "ruby"
	FamilyGo         Family = "go"
	FamilyUnknown    Family = "unknown"
)

// FamilyOf は主要言語から言語ファミリーを返します
func FamilyOf(language string) Family {
	switch strings.ToLower(language) {
	case "javascript", "typescript", "vue", "svelte":
		return FamilyJavaScript
	case "python", "jupyter notebook":
		return FamilyPython
	case "ruby":
		return FamilyRuby
	case "go":
		return FamilyGo
	default:
		return FamilyUnknown
	}
}

// Detector はマニフェストファイルから技術スタックを推定します
type Detector struct {
	logger *slog.Logger
}

// Option はDetectorのオプションです
type Option func(*Detector)

// WithLogger はロガーを設定します
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

// NewDetector は新しいDetectorを作成します
func NewDetector(opts ...Option) *Detector {
	d := &Detector{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect は技術スタックを推定します
// マニフェストが存在しない・解析できない場合はUnknownで埋めたスタックを返し、エラーは返しません
func (d *Detector) Detect(in Input) TechStack {
	files := normalizeFiles(in.Files)

	var (
		stack TechStack
		err   error
	)
	switch FamilyOf(in.PrimaryLanguage) {
	case FamilyJavaScript:
		stack, err = detectJavaScript(in.PrimaryLanguage, files, in.Paths)
	case FamilyPython:
		stack, err = detectPython(in.PrimaryLanguage, files, in.Paths)
	case FamilyRuby:
		stack, err = detectRuby(in.PrimaryLanguage, files)
	case FamilyGo:
		stack, err = detectGo(in.PrimaryLanguage, files)
	default:
		d.logger.Info("未対応の言語のため技術スタック検出をスキップします", "language", in.PrimaryLanguage)
		return unknownStack(in.PrimaryLanguage)
	}

	if err != nil {
		d.logger.Warn("技術スタックの検出に失敗しました", "language", in.PrimaryLanguage, "error", err)
		return unknownStack(in.PrimaryLanguage)
	}
	return stack
}

// PackageDescription はpackage.jsonのdescriptionを返します
func PackageDescription(files map[string]string) string {
	content, ok := normalizeFiles(files)["package.json"]
	if !ok {
		return ""
	}
	var pkg packageJSON
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return ""
	}
	return strings.TrimSpace(pkg.Description)
}

func normalizeFiles(files map[string]string) map[string]string {
	normalized := make(map[string]string, len(files))
	for name, content := range files {
		key := strings.ToLower(path.Base(name))
		if _, exists := normalized[key]; !exists {
			normalized[key] = content
		}
	}
	return normalized
}

func hasPath(paths []string, base string) bool {
	for _, p := range paths {
		if strings.EqualFold(path.Base(p), base) {
			return true
		}
	}
	return false
}

type packageJSON struct {
	Description     string            `json:"description"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Engines         map[string]string `json:"engines"`
	PackageManager  string            `json:"packageManager"`
}

func detectJavaScript(language string, files map[string]string, paths []string) (TechStack, error) {
	content, ok := files["package.json"]
	if !ok {
		return TechStack{}, fmt.Errorf("package.json not found")
	}

	var pkg packageJSON
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return TechStack{}, fmt.Errorf("failed to parse package.json: %w", err)
	}

	prod := sortedKeys(pkg.Dependencies)
	dev := sortedKeys(pkg.DevDependencies)
	deps := toSet(prod, dev)

	runtime := "Node.js"
	if v := strings.TrimSpace(pkg.Engines["node"]); v != "" {
		runtime = "Node.js " + v
	} else if v := strings.TrimSpace(files[".nvmrc"]); v != "" {
		runtime = "Node.js " + strings.TrimPrefix(v, "v")
	}

	return TechStack{
		PrimaryLanguage:  language,
		Framework:        labelOrUnknown(matchExact(jsFrameworks, deps)),
		RuntimeVersion:   runtime,
		PackageManager:   jsPackageManager(pkg.PackageManager, paths),
		Dependencies:     Dependencies{Production: prod, Development: dev},
		TestingFramework: matchExact(jsTesting, deps),
		Database:         matchExact(jsDatabases, deps),
		UILibrary:        matchExact(jsUILibraries, deps),
	}, nil
}

func jsPackageManager(declared string, paths []string) string {
	if declared != "" {
		name, _, _ := strings.Cut(declared, "@")
		if name != "" {
			return name
		}
	}
	switch {
	case hasPath(paths, "pnpm-lock.yaml"):
		return "pnpm"
	case hasPath(paths, "yarn.lock"):
		return "yarn"
	case hasPath(paths, "bun.lockb"), hasPath(paths, "bun.lock"):
		return "bun"
	default:
		return "npm"
	}
}

var requirementSeparator = regexp.MustCompile(`[=<>!~;\[\s@]`)

// parseRequirements はrequirements形式からバージョン指定を除いたパッケージ名を取り出します
func parseRequirements(content string) []string {
	names := []string{}
	seen := map[string]bool{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		name := line
		if loc := requirementSeparator.FindStringIndex(line); loc != nil {
			name = line[:loc[0]]
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func detectPython(language string, files map[string]string, paths []string) (TechStack, error) {
	content, ok := files["requirements.txt"]
	if !ok {
		return TechStack{}, fmt.Errorf("requirements.txt not found")
	}

	prod := parseRequirements(content)
	dev := []string{}
	if devContent, ok := files["requirements-dev.txt"]; ok {
		dev = parseRequirements(devContent)
	}
	deps := toSet(prod, dev)

	manager := "pip"
	switch {
	case strings.Contains(files["pyproject.toml"], "[tool.poetry]"), hasPath(paths, "poetry.lock"):
		manager = "poetry"
	case hasPath(paths, "Pipfile"):
		manager = "pipenv"
	case hasPath(paths, "uv.lock"):
		manager = "uv"
	}

	runtime := "Python"
	if v := strings.TrimSpace(files[".python-version"]); v != "" {
		runtime = "Python " + v
	}

	return TechStack{
		PrimaryLanguage:  language,
		Framework:        labelOrUnknown(matchExact(pythonFrameworks, deps)),
		RuntimeVersion:   runtime,
		PackageManager:   manager,
		Dependencies:     Dependencies{Production: prod, Development: dev},
		TestingFramework: matchExact(pythonTesting, deps),
		Database:         matchExact(pythonDatabases, deps),
	}, nil
}

var (
	gemPattern        = regexp.MustCompile(`^\s*gem\s+['"]([^'"]+)['"]`)
	rubyVersionRegexp = regexp.MustCompile(`^\s*ruby\s+['"]([^'"]+)['"]`)
	groupPattern      = regexp.MustCompile(`^\s*group\s+(.+?)\s+do\b`)
	blockOpenPattern  = regexp.MustCompile(`\bdo\s*(\|[^|]*\|)?\s*(#.*)?$`)
	endPattern        = regexp.MustCompile(`^\s*end\b`)
)

// parseGemfile はGemfileからgem宣言とRubyバージョンを取り出します
// development/testグループ内のgemは開発用として扱います
func parseGemfile(content string) (prod, dev []string, version string) {
	prod, dev = []string{}, []string{}
	// ブロックごとに開発用グループ内かどうかを積みます
	var blocks []bool
	inDevGroup := func() bool { return len(blocks) > 0 && blocks[len(blocks)-1] }

	for _, line := range strings.Split(content, "\n") {
		if m := groupPattern.FindStringSubmatch(line); m != nil {
			isDev := inDevGroup() || strings.Contains(m[1], ":development") || strings.Contains(m[1], ":test")
			blocks = append(blocks, isDev)
			continue
		}
		if blockOpenPattern.MatchString(line) {
			blocks = append(blocks, inDevGroup())
			continue
		}
		if len(blocks) > 0 && endPattern.MatchString(line) {
			blocks = blocks[:len(blocks)-1]
			continue
		}
		if m := rubyVersionRegexp.FindStringSubmatch(line); m != nil && version == "" {
			version = m[1]
			continue
		}
		if m := gemPattern.FindStringSubmatch(line); m != nil {
			if inDevGroup() {
				dev = append(dev, m[1])
			} else {
				prod = append(prod, m[1])
			}
		}
	}
	return prod, dev, version
}

func detectRuby(language string, files map[string]string) (TechStack, error) {
	content, ok := files["gemfile"]
	if !ok {
		return TechStack{}, fmt.Errorf("Gemfile not found")
	}

	prod, dev, version := parseGemfile(content)
	if version == "" {
		version = strings.TrimSpace(files[".ruby-version"])
	}
	runtime := "Ruby"
	if version != "" {
		runtime = "Ruby " + version
	}

	deps := toSet(prod, dev)
	return TechStack{
		PrimaryLanguage:  language,
		Framework:        labelOrUnknown(matchExact(rubyFrameworks, deps)),
		RuntimeVersion:   runtime,
		PackageManager:   "Bundler",
		Dependencies:     Dependencies{Production: prod, Development: dev},
		TestingFramework: matchExact(rubyTesting, deps),
		Database:         matchExact(rubyDatabases, deps),
		UILibrary:        matchExact(rubyUILibraries, deps),
	}, nil
}

func detectGo(language string, files map[string]string) (TechStack, error) {
	content, ok := files["go.mod"]
	if !ok {
		return TechStack{}, fmt.Errorf("go.mod not found")
	}

	f, err := modfile.ParseLax("go.mod", []byte(content), nil)
	if err != nil {
		return TechStack{}, fmt.Errorf("failed to parse go.mod: %w", err)
	}

	prod, indirect := []string{}, []string{}
	for _, r := range f.Require {
		if r.Indirect {
			indirect = append(indirect, r.Mod.Path)
			continue
		}
		prod = append(prod, r.Mod.Path)
	}

	runtime := "Go"
	if f.Go != nil && f.Go.Version != "" {
		runtime = "Go " + f.Go.Version
	}

	all := append(append([]string{}, prod...), indirect...)
	return TechStack{
		PrimaryLanguage:  language,
		Framework:        labelOrUnknown(matchPrefix(goFrameworks, prod)),
		RuntimeVersion:   runtime,
		PackageManager:   "Go modules",
		Dependencies:     Dependencies{Production: prod, Development: []string{}},
		TestingFramework: matchPrefix(goTesting, all),
		Database:         matchPrefix(goDatabases, all),
	}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
