package techstack

import "strings"

// signature は依存パッケージ名と表示ラベルの対応です
type signature struct {
	dep   string
	label string
}

// 各テーブルは優先順に並んでおり、最初に一致したものが採用されます

var jsFrameworks = []signature{
	{"next", "Next.js"},
	{"nuxt", "Nuxt"},
	{"@remix-run/react", "Remix"},
	{"gatsby", "Gatsby"},
	{"@sveltejs/kit", "SvelteKit"},
	{"astro", "Astro"},
	{"@angular/core", "Angular"},
	{"react-native", "React Native"},
	{"react", "React"},
	{"vue", "Vue"},
	{"svelte", "Svelte"},
	{"solid-js", "SolidJS"},
	{"@nestjs/core", "NestJS"},
	{"express", "Express"},
	{"fastify", "Fastify"},
	{"koa", "Koa"},
	{"hono", "Hono"},
	{"electron", "Electron"},
}

var jsTesting = []signature{
	{"vitest", "Vitest"},
	{"jest", "Jest"},
	{"@playwright/test", "Playwright"},
	{"cypress", "Cypress"},
	{"mocha", "Mocha"},
	{"jasmine", "Jasmine"},
	{"ava", "AVA"},
}

var jsDatabases = []signature{
	{"pg", "PostgreSQL"},
	{"postgres", "PostgreSQL"},
	{"mysql2", "MySQL"},
	{"mysql", "MySQL"},
	{"mongodb", "MongoDB"},
	{"mongoose", "MongoDB"},
	{"better-sqlite3", "SQLite"},
	{"sqlite3", "SQLite"},
	{"redis", "Redis"},
	{"ioredis", "Redis"},
	{"@prisma/client", "Prisma"},
	{"drizzle-orm", "Drizzle"},
	{"typeorm", "TypeORM"},
	{"sequelize", "Sequelize"},
	{"@supabase/supabase-js", "Supabase"},
	{"firebase", "Firebase"},
}

var jsUILibraries = []signature{
	{"tailwindcss", "Tailwind CSS"},
	{"@mui/material", "Material UI"},
	{"@chakra-ui/react", "Chakra UI"},
	{"antd", "Ant Design"},
	{"@mantine/core", "Mantine"},
	{"bootstrap", "Bootstrap"},
	{"styled-components", "styled-components"},
	{"@emotion/react", "Emotion"},
	{"vuetify", "Vuetify"},
}

var pythonFrameworks = []signature{
	{"django", "Django"},
	{"fastapi", "FastAPI"},
	{"flask", "Flask"},
	{"starlette", "Starlette"},
	{"tornado", "Tornado"},
	{"pyramid", "Pyramid"},
	{"streamlit", "Streamlit"},
}

var pythonTesting = []signature{
	{"pytest", "pytest"},
	{"nose2", "nose2"},
	{"nose", "nose"},
	{"hypothesis", "Hypothesis"},
}

var pythonDatabases = []signature{
	{"psycopg2", "PostgreSQL"},
	{"psycopg2-binary", "PostgreSQL"},
	{"psycopg", "PostgreSQL"},
	{"asyncpg", "PostgreSQL"},
	{"mysqlclient", "MySQL"},
	{"pymysql", "MySQL"},
	{"pymongo", "MongoDB"},
	{"motor", "MongoDB"},
	{"mongoengine", "MongoDB"},
	{"redis", "Redis"},
	{"sqlalchemy", "SQLAlchemy"},
}

var rubyFrameworks = []signature{
	{"rails", "Ruby on Rails"},
	{"hanami", "Hanami"},
	{"sinatra", "Sinatra"},
	{"grape", "Grape"},
}

var rubyTesting = []signature{
	{"rspec-rails", "RSpec"},
	{"rspec", "RSpec"},
	{"minitest", "Minitest"},
	{"cucumber", "Cucumber"},
}

var rubyDatabases = []signature{
	{"pg", "PostgreSQL"},
	{"mysql2", "MySQL"},
	{"sqlite3", "SQLite"},
	{"mongoid", "MongoDB"},
	{"redis", "Redis"},
}

var rubyUILibraries = []signature{
	{"tailwindcss-rails", "Tailwind CSS"},
	{"bootstrap", "Bootstrap"},
}

// Goはモジュールパスの前方一致で判定します
var goFrameworks = []signature{
	{"github.com/gin-gonic/gin", "Gin"},
	{"github.com/labstack/echo", "Echo"},
	{"github.com/gofiber/fiber", "Fiber"},
	{"github.com/go-chi/chi", "Chi"},
	{"github.com/gorilla/mux", "Gorilla Mux"},
	{"github.com/spf13/cobra", "Cobra"},
	{"github.com/urfave/cli", "urfave/cli"},
}

var goTesting = []signature{
	{"github.com/stretchr/testify", "Testify"},
	{"github.com/onsi/ginkgo", "Ginkgo"},
}

var goDatabases = []signature{
	{"github.com/jackc/pgx", "PostgreSQL"},
	{"github.com/lib/pq", "PostgreSQL"},
	{"github.com/go-sql-driver/mysql", "MySQL"},
	{"go.mongodb.org/mongo-driver", "MongoDB"},
	{"github.com/mattn/go-sqlite3", "SQLite"},
	{"modernc.org/sqlite", "SQLite"},
	{"github.com/redis/go-redis", "Redis"},
	{"gorm.io/gorm", "GORM"},
}

// matchExact は完全一致で最初に見つかったラベルを返します
func matchExact(table []signature, deps map[string]bool) *string {
	for _, s := range table {
		if deps[s.dep] {
			label := s.label
			return &label
		}
	}
	return nil
}

// matchPrefix は前方一致で最初に見つかったラベルを返します
func matchPrefix(table []signature, deps []string) *string {
	for _, s := range table {
		for _, d := range deps {
			if d == s.dep || strings.HasPrefix(d, s.dep+"/") {
				label := s.label
				return &label
			}
		}
	}
	return nil
}

func labelOrUnknown(label *string) string {
	if label == nil {
		return Unknown
	}
	return *label
}

func toSet(names ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, list := range names {
		for _, n := range list {
			set[n] = true
		}
	}
	return set
}
