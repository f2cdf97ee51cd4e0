package classifier

// MaxFileSize を超えるファイルは重要ファイルを除き解析対象外です
const MaxFileSize int64 = 1 << 20

// excludedDirectories はビルド成果物・依存キャッシュ・VCS内部・生成アセットのディレクトリです
var excludedDirectories = []string{
	"node_modules",
	"bower_components",
	"vendor",
	".git",
	".svn",
	".hg",
	"dist",
	"build",
	"out",
	"target",
	"bin",
	"obj",
	".next",
	".nuxt",
	".svelte-kit",
	".turbo",
	".cache",
	".parcel-cache",
	".gradle",
	".idea",
	".vscode",
	"coverage",
	".nyc_output",
	"__pycache__",
	".pytest_cache",
	".mypy_cache",
	".tox",
	".venv",
	"venv",
	"site-packages",
	".bundle",
	"tmp",
	"logs",
	"storybook-static",
	"public/build",
	"public/assets",
	"static/generated",
}

// criticalFiles は拡張子やサイズに関係なく常に解析するファイル名です（大文字小文字を区別しない）
var criticalFiles = []string{
	"readme", "readme.md", "readme.rst", "readme.txt",
	"license", "license.md", "license.txt",
	"changelog", "changelog.md",
	"contributing.md",
	"package.json", "tsconfig.json",
	"requirements.txt", "requirements-dev.txt", "setup.py", "setup.cfg", "pyproject.toml", "pipfile",
	"gemfile", ".ruby-version",
	"go.mod",
	"cargo.toml",
	"pom.xml", "build.gradle", "build.gradle.kts",
	"composer.json",
	".env.example", ".env.sample", ".env.template", "env.example", ".env.local.example",
	"dockerfile", "docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml",
	"makefile", "procfile",
	".nvmrc", ".node-version", ".python-version", ".tool-versions",
	"jest.config.js", "jest.config.ts", "vitest.config.ts", "vitest.config.js",
	"playwright.config.ts", "cypress.config.ts", "cypress.config.js",
	"vite.config.ts", "vite.config.js", "webpack.config.js",
	"next.config.js", "next.config.mjs", "next.config.ts", "nuxt.config.ts",
	"tailwind.config.js", "tailwind.config.ts",
	"babel.config.js", ".babelrc", ".eslintrc.json", ".eslintrc.js", ".prettierrc",
	"pytest.ini", "tox.ini", ".rspec",
}

// criticalPathSuffixes はパス末尾で一致させる重要ファイルです
var criticalPathSuffixes = []string{
	"prisma/schema.prisma",
	"config/database.yml",
	".github/workflows/ci.yml",
	".devcontainer/devcontainer.json",
}

// excludedExtensions はバイナリ・メディア・アーカイブ・ロックファイルの拡張子です
var excludedExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".ico", ".svg", ".webp", ".tiff", ".psd",
	".mp3", ".mp4", ".wav", ".ogg", ".mov", ".avi", ".webm", ".flac",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".zip", ".tar", ".gz", ".tgz", ".bz2", ".xz", ".rar", ".7z", ".jar", ".war",
	".exe", ".dll", ".so", ".dylib", ".bin", ".o", ".a", ".class", ".pyc", ".pyo", ".wasm",
	".woff", ".woff2", ".ttf", ".eot", ".otf",
	".min.js", ".min.css", ".map",
	".lock", ".lockb", "-lock.json", "-lock.yaml", ".sum",
	".db", ".sqlite", ".sqlite3",
}

// codeExtensions はソース・設定・ドキュメントとして解析する拡張子です
var codeExtensions = []string{
	".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".vue", ".svelte", ".astro",
	".py", ".rb", ".erb", ".go", ".rs", ".java", ".kt", ".kts", ".scala", ".groovy", ".swift",
	".c", ".h", ".cc", ".cpp", ".hpp", ".cs", ".fs", ".php", ".ex", ".exs", ".erl", ".hs",
	".lua", ".dart", ".r", ".jl", ".clj", ".elm",
	".sh", ".bash", ".zsh", ".ps1",
	".sql", ".prisma", ".graphql", ".gql", ".proto",
	".json", ".yml", ".yaml", ".toml", ".ini", ".cfg", ".conf", ".xml", ".tf", ".hcl",
	".md", ".mdx", ".rst", ".txt", ".adoc",
	".html", ".htm", ".css", ".scss", ".sass", ".less",
}
