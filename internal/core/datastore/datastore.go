// Package datastore は依存関係とcompose定義から必要なデータストアを推定します
package datastore

import (
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Type はデータストアの種別です
type Type string

const (
	PostgreSQL Type = "PostgreSQL"
	MySQL      Type = "MySQL"
	MongoDB    Type = "MongoDB"
	SQLite     Type = "SQLite"
	Redis      Type = "Redis"
)

// Types は判定順のデータストア種別です
var Types = []Type{PostgreSQL, MySQL, MongoDB, SQLite, Redis}

// Requirement は1種類のデータストアに関する要件です
type Requirement struct {
	Type              Type   `json:"type"`
	Required          bool   `json:"required"`
	MigrationRequired bool   `json:"migration_required"`
	MigrationsPath    string `json:"migrations_path,omitempty"`
	SeedDataAvailable bool   `json:"seed_data_available"`
	SetupGuide        string `json:"setup_guide"`
}

// dependencyGroups はデータストア種別ごとの依存パッケージ名です（エコシステム横断）
var dependencyGroups = map[Type][]string{
	PostgreSQL: {
		"pg", "postgres", "pg-promise", "@neondatabase/serverless", "@vercel/postgres",
		"psycopg2", "psycopg2-binary", "psycopg", "asyncpg",
		"github.com/jackc/pgx", "github.com/lib/pq",
	},
	MySQL: {
		"mysql", "mysql2", "mysqlclient", "pymysql", "aiomysql",
		"github.com/go-sql-driver/mysql",
	},
	MongoDB: {
		"mongodb", "mongoose", "pymongo", "motor", "mongoengine", "mongoid",
		"go.mongodb.org/mongo-driver",
	},
	SQLite: {
		"sqlite3", "better-sqlite3", "sqlite", "aiosqlite",
		"github.com/mattn/go-sqlite3", "modernc.org/sqlite",
	},
	Redis: {
		"redis", "ioredis", "@upstash/redis", "aioredis", "redis-rb",
		"github.com/redis/go-redis", "github.com/go-redis/redis",
	},
}

// migrationPatterns はマイグレーションディレクトリのパス部分一致パターンです（優先順）
var migrationPatterns = []string{
	"prisma/migrations/",
	"db/migrate/",
	"db/migrations/",
	"database/migrations/",
	"migrations/",
	"migrate/",
	"alembic/versions/",
	"drizzle/",
	"supabase/migrations/",
}

// seedPatterns はシードデータのパス部分一致パターンです
var seedPatterns = []string{
	"seeds/",
	"seeders/",
	"db/seeds.rb",
	"prisma/seed.",
	"seed.sql",
	"seed.js",
	"seed.ts",
	"seed.py",
	"fixtures/",
}

// composeImages はcompose定義のイメージ名と種別の対応です
var composeImages = []struct {
	image string
	typ   Type
}{
	{"postgres", PostgreSQL},
	{"postgis", PostgreSQL},
	{"mysql", MySQL},
	{"mariadb", MySQL},
	{"mongo", MongoDB},
	{"redis", Redis},
}

// toolImageMarkers はデータストア本体ではない管理・監視用イメージの目印です
var toolImageMarkers = []string{"express", "commander", "exporter", "insight", "admin"}

var setupGuides = map[Type]string{
	PostgreSQL: "Install PostgreSQL locally (or run `docker run -p 5432:5432 -e POSTGRES_PASSWORD=postgres postgres`) and set the connection URL in your environment file.",
	MySQL:      "Install MySQL locally (or run `docker run -p 3306:3306 -e MYSQL_ROOT_PASSWORD=root mysql`) and set the connection settings in your environment file.",
	MongoDB:    "Install MongoDB locally (or run `docker run -p 27017:27017 mongo`) and set the connection URI in your environment file.",
	SQLite:     "SQLite needs no server; the database file is created on first run.",
	Redis:      "Install Redis locally (or run `docker run -p 6379:6379 redis`) and set the Redis URL in your environment file.",
}

// SetupGuide はデータストア種別ごとのセットアップ手順を返します
func SetupGuide(t Type) string {
	return setupGuides[t]
}

// DetectFromDependencies は依存パッケージ名とファイル一覧からデータストア要件を推定します
func DetectFromDependencies(dependencies []string, files []string) []Requirement {
	deps := make(map[string]bool, len(dependencies))
	for _, d := range dependencies {
		deps[strings.ToLower(d)] = true
	}

	migrationsPath := findMigrationsPath(files)
	hasSeed := hasSeedData(files)

	requirements := []Requirement{}
	for _, t := range Types {
		if !matchesGroup(deps, dependencyGroups[t]) {
			continue
		}
		requirements = append(requirements, Requirement{
			Type:              t,
			Required:          true,
			MigrationRequired: migrationsPath != "",
			MigrationsPath:    migrationsPath,
			SeedDataAvailable: hasSeed,
			SetupGuide:        setupGuides[t],
		})
	}
	return requirements
}

func matchesGroup(deps map[string]bool, group []string) bool {
	for _, name := range group {
		if deps[name] {
			return true
		}
		// Goのモジュールパスはメジャーバージョン接尾辞を許容する
		if strings.Contains(name, "/") {
			for d := range deps {
				if strings.HasPrefix(d, name+"/") {
					return true
				}
			}
		}
	}
	return false
}

// findMigrationsPath は最初に一致したマイグレーションディレクトリを返します
func findMigrationsPath(files []string) string {
	for _, pattern := range migrationPatterns {
		for _, f := range files {
			lower := strings.ToLower(f)
			idx := strings.Index("/"+lower, "/"+pattern)
			if idx < 0 {
				continue
			}
			return strings.TrimSuffix(f[:idx+len(pattern)], "/")
		}
	}
	return ""
}

func hasSeedData(files []string) bool {
	for _, f := range files {
		lower := "/" + strings.ToLower(f)
		for _, pattern := range seedPatterns {
			if strings.Contains(lower, "/"+pattern) {
				return true
			}
		}
	}
	return false
}

type composeFile struct {
	Services map[string]struct {
		Image string `yaml:"image"`
	} `yaml:"services"`
}

// DetectFromCompose はcompose定義のイメージからデータストア要件を推定します
// YAMLとして解析できない場合は "image: <db>" の部分一致で判定します
func DetectFromCompose(content string) []Requirement {
	images := composeImageNames(content)

	found := map[Type]bool{}
	for _, image := range images {
		if typ, ok := imageType(image); ok {
			found[typ] = true
		}
	}
	if len(images) == 0 {
		lower := strings.ToLower(content)
		for _, ci := range composeImages {
			if strings.Contains(lower, "image: "+ci.image) {
				found[ci.typ] = true
			}
		}
	}

	requirements := []Requirement{}
	for _, t := range Types {
		if !found[t] {
			continue
		}
		requirements = append(requirements, Requirement{
			Type:       t,
			Required:   true,
			SetupGuide: setupGuides[t],
		})
	}
	return requirements
}

// imageType はイメージのリポジトリ名のいずれかのセグメントがデータストア名で始まれば種別を返します
// mysql/mysql-server:8.0 や bitnami/postgresql も一致し、mongo-express などの管理ツールは除外します
func imageType(image string) (Type, bool) {
	repo := image
	if i := strings.IndexByte(repo, '@'); i >= 0 {
		repo = repo[:i]
	}
	if slash := strings.LastIndexByte(repo, '/'); strings.LastIndexByte(repo, ':') > slash {
		repo = repo[:strings.LastIndexByte(repo, ':')]
	}

	for _, segment := range strings.Split(repo, "/") {
		if isToolImage(segment) {
			continue
		}
		for _, ci := range composeImages {
			if strings.HasPrefix(segment, ci.image) {
				return ci.typ, true
			}
		}
	}
	return "", false
}

func isToolImage(segment string) bool {
	for _, marker := range toolImageMarkers {
		if strings.Contains(segment, marker) {
			return true
		}
	}
	return false
}

func composeImageNames(content string) []string {
	var cf composeFile
	if err := yaml.Unmarshal([]byte(content), &cf); err != nil {
		return nil
	}
	names := make([]string, 0, len(cf.Services))
	for _, svc := range cf.Services {
		if svc.Image != "" {
			names = append(names, strings.ToLower(svc.Image))
		}
	}
	sort.Strings(names)
	return names
}

// Merge は種別ごとに要件を統合します
// 真偽値は論理和、パスは最初の空でない値を採用し、結果は種別の固定順で並びます
func Merge(sources ...[]Requirement) []Requirement {
	merged := map[Type]*Requirement{}
	for _, reqs := range sources {
		for _, r := range reqs {
			existing, ok := merged[r.Type]
			if !ok {
				copied := r
				merged[r.Type] = &copied
				continue
			}
			existing.Required = existing.Required || r.Required
			existing.MigrationRequired = existing.MigrationRequired || r.MigrationRequired
			existing.SeedDataAvailable = existing.SeedDataAvailable || r.SeedDataAvailable
			if existing.MigrationsPath == "" {
				existing.MigrationsPath = r.MigrationsPath
			}
			if existing.SetupGuide == "" {
				existing.SetupGuide = r.SetupGuide
			}
		}
	}

	result := []Requirement{}
	for _, t := range Types {
		if r, ok := merged[t]; ok {
			result = append(result, *r)
		}
	}
	return result
}

// IsComposeFile はcompose定義ファイルのベース名かどうかを返します
func IsComposeFile(name string) bool {
	switch strings.ToLower(path.Base(name)) {
	case "docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml":
		return true
	}
	return false
}
