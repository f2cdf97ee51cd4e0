package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFromDependencies(t *testing.T) {
	files := []string{
		"src/index.ts",
		"prisma/schema.prisma",
		"prisma/migrations/20240101_init/migration.sql",
		"prisma/seed.ts",
	}

	reqs := DetectFromDependencies([]string{"express", "pg", "ioredis"}, files)

	require.Len(t, reqs, 2)
	assert.Equal(t, PostgreSQL, reqs[0].Type)
	assert.True(t, reqs[0].Required)
	assert.True(t, reqs[0].MigrationRequired)
	assert.Equal(t, "prisma/migrations", reqs[0].MigrationsPath)
	assert.True(t, reqs[0].SeedDataAvailable)
	assert.NotEmpty(t, reqs[0].SetupGuide)
	assert.Equal(t, Redis, reqs[1].Type)
}

func TestDetectFromDependenciesGoModules(t *testing.T) {
	reqs := DetectFromDependencies([]string{"github.com/jackc/pgx/v5", "github.com/redis/go-redis/v9"}, nil)
	require.Len(t, reqs, 2)
	assert.Equal(t, PostgreSQL, reqs[0].Type)
	assert.False(t, reqs[0].MigrationRequired)
	assert.Empty(t, reqs[0].MigrationsPath)
	assert.Equal(t, Redis, reqs[1].Type)
}

func TestFindMigrationsPath(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{"rails", []string{"app/models/user.rb", "db/migrate/001_create_users.rb"}, "db/migrate"},
		{"priority order", []string{"migrations/001.sql", "db/migrations/001.sql"}, "db/migrations"},
		{"nested", []string{"services/api/migrations/0001.py"}, "services/api/migrations"},
		{"segment aware", []string{"src/nomigrations/x.sql"}, ""},
		{"none", []string{"src/main.go"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findMigrationsPath(tt.files))
		})
	}
}

func TestDetectFromCompose(t *testing.T) {
	compose := `services:
  app:
    build: .
  db:
    image: postgres:16-alpine
  cache:
    image: redis:7
  admin:
    image: mongo-express
`
	reqs := DetectFromCompose(compose)

	require.Len(t, reqs, 2)
	assert.Equal(t, PostgreSQL, reqs[0].Type)
	assert.False(t, reqs[0].MigrationRequired)
	assert.False(t, reqs[0].SeedDataAvailable)
	assert.Equal(t, Redis, reqs[1].Type)
}

func TestDetectFromComposeNamespacedImages(t *testing.T) {
	tests := []struct {
		name  string
		image string
		want  []Type
	}{
		{"official mysql server", "mysql/mysql-server:8.0", []Type{MySQL}},
		{"mongodb community", "mongodb/mongodb-community-server:7.0-ubuntu2204", []Type{MongoDB}},
		{"redis stack", "redis/redis-stack-server:latest", []Type{Redis}},
		{"bitnami postgresql", "bitnami/postgresql:16", []Type{PostgreSQL}},
		{"registry with port", "localhost:5000/postgres:16", []Type{PostgreSQL}},
		{"digest", "redis@sha256:abcdef", []Type{Redis}},
		{"mongo admin ui", "mongo-express:1.0", []Type{}},
		{"redis admin ui", "rediscommander/redis-commander", []Type{}},
		{"metrics exporter", "prometheuscommunity/postgres-exporter", []Type{}},
		{"unrelated", "nginx:1.27", []Type{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs := DetectFromCompose("services:\n  svc:\n    image: " + tt.image + "\n")

			got := []Type{}
			for _, r := range reqs {
				got = append(got, r.Type)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFromComposeMixedNamespacedServices(t *testing.T) {
	compose := `services:
  mysql:
    image: mysql/mysql-server:8.0
  mongo:
    image: mongodb/mongodb-community-server:7.0-ubuntu2204
  cache:
    image: redis/redis-stack-server:latest
`
	reqs := DetectFromCompose(compose)

	require.Len(t, reqs, 3)
	types := []Type{reqs[0].Type, reqs[1].Type, reqs[2].Type}
	assert.ElementsMatch(t, []Type{MySQL, MongoDB, Redis}, types)
}

func TestDetectFromComposeInvalidYAMLFallsBackToSubstring(t *testing.T) {
	compose := "services:\n\tdb:\n    image: mysql:8\n  oops: [\n"

	reqs := DetectFromCompose(compose)

	require.Len(t, reqs, 1)
	assert.Equal(t, MySQL, reqs[0].Type)
}

func TestMergeIsCommutative(t *testing.T) {
	fromDeps := []Requirement{{
		Type:              PostgreSQL,
		Required:          true,
		MigrationRequired: true,
		MigrationsPath:    "db/migrate",
		SeedDataAvailable: false,
		SetupGuide:        SetupGuide(PostgreSQL),
	}}
	fromCompose := []Requirement{
		{Type: PostgreSQL, Required: true, SeedDataAvailable: true, SetupGuide: SetupGuide(PostgreSQL)},
		{Type: Redis, Required: true, SetupGuide: SetupGuide(Redis)},
	}

	a := Merge(fromDeps, fromCompose)
	b := Merge(fromCompose, fromDeps)

	require.Len(t, a, 2)
	assert.Equal(t, a, b)
	assert.Equal(t, PostgreSQL, a[0].Type)
	assert.True(t, a[0].MigrationRequired)
	assert.True(t, a[0].SeedDataAvailable)
	assert.Equal(t, "db/migrate", a[0].MigrationsPath)
}

func TestMergeIsIdempotent(t *testing.T) {
	reqs := []Requirement{
		{Type: MongoDB, Required: true},
		{Type: MongoDB, Required: true, MigrationsPath: "migrations"},
	}

	once := Merge(reqs)
	twice := Merge(once, once)

	require.Len(t, once, 1)
	assert.Equal(t, once, twice)
	assert.Equal(t, "migrations", once[0].MigrationsPath)
}

func TestMergeEmpty(t *testing.T) {
	assert.NotNil(t, Merge())
	assert.Empty(t, Merge(nil, []Requirement{}))
}

func TestIsComposeFile(t *testing.T) {
	assert.True(t, IsComposeFile("docker-compose.yml"))
	assert.True(t, IsComposeFile("deploy/compose.yaml"))
	assert.False(t, IsComposeFile("Dockerfile"))
}
