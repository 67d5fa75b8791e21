//go:build integration

package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"catalog-service/internal/catalog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDBName = "test_catalog"
	testDBUser = "test"
	testDBPass = "test"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:17-alpine"),
		postgres.WithDatabase(testDBName),
		postgres.WithUsername(testDBUser),
		postgres.WithPassword(testDBPass),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	migrationsPath := migrationsDir(t)
	m, err := migrate.New("file://"+migrationsPath, connStr)
	if err != nil {
		t.Fatalf("init migrate: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("run migrations: %v", err)
	}
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		t.Fatalf("close migrate source: %v", srcErr)
	}
	if dbErr != nil {
		t.Fatalf("close migrate db: %v", dbErr)
	}

	return db
}

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	return filepath.Join(filepath.Dir(filename), "..", "..", "..", "migrations", "catalog")
}

func newProduct(title string, price int64) catalog.Product {
	return catalog.Product{
		ID:          uuid.NewString(),
		Title:       title,
		Description: "integration test product",
		Price:       price,
	}
}

func TestPostgresRepository_CreateWithStock(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgres(db)
	ctx := context.Background()

	t.Run("creates product and stock together", func(t *testing.T) {
		item, err := repo.CreateWithStock(ctx, newProduct("Laptop", 99900), 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item.CreatedAt.IsZero() {
			t.Fatal("expected non-zero created_at")
		}
		if item.Count != 3 {
			t.Fatalf("want count 3, got %d", item.Count)
		}

		count, err := repo.StockCount(ctx, item.ID)
		if err != nil {
			t.Fatalf("stock count: %v", err)
		}
		if count != 3 {
			t.Fatalf("want stored count 3, got %d", count)
		}
	})

	t.Run("invalid price leaves no partial records", func(t *testing.T) {
		p := newProduct("Broken", 0) // violates the price check constraint
		if _, err := repo.CreateWithStock(ctx, p, 1); err == nil {
			t.Fatal("expected constraint violation")
		}

		if _, err := repo.Get(ctx, p.ID); !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("want no product row, got %v", err)
		}
		count, err := repo.StockCount(ctx, p.ID)
		if err != nil {
			t.Fatalf("stock count: %v", err)
		}
		if count != 0 {
			t.Fatalf("want no stock row, got count %d", count)
		}
	})

	t.Run("negative count leaves no partial records", func(t *testing.T) {
		p := newProduct("Negative", 100)
		if _, err := repo.CreateWithStock(ctx, p, -1); err == nil {
			t.Fatal("expected constraint violation")
		}
		if _, err := repo.Get(ctx, p.ID); !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("product row should have rolled back, got %v", err)
		}
	})
}

func TestPostgresRepository_Get(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgres(db)
	ctx := context.Background()

	created, err := repo.CreateWithStock(ctx, newProduct("Camera", 45000), 2)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	t.Run("returns stored product", func(t *testing.T) {
		got, err := repo.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Title != "Camera" || got.Price != 45000 {
			t.Fatalf("stored fields lost: %+v", got)
		}
	})

	t.Run("unknown id returns ErrNotFound", func(t *testing.T) {
		if _, err := repo.Get(ctx, uuid.NewString()); !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})
}

func TestPostgresRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgres(db)
	ctx := context.Background()

	titles := []string{"Alpha", "Beta", "Gamma", "Delta", "Epsilon"}
	for i, title := range titles {
		if _, err := repo.CreateWithStock(ctx, newProduct(title, 100), int64(i)); err != nil {
			t.Fatalf("seed %q: %v", title, err)
		}
	}

	t.Run("non-positive limit returns everything", func(t *testing.T) {
		list, err := repo.List(ctx, 0, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(list) != len(titles) {
			t.Fatalf("want %d items, got %d", len(titles), len(list))
		}
	})

	t.Run("respects limit and offset", func(t *testing.T) {
		all, _ := repo.List(ctx, 0, 0)
		page2, err := repo.List(ctx, 2, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(page2) != 2 {
			t.Fatalf("want 2 items, got %d", len(page2))
		}
		if page2[0].ID != all[2].ID {
			t.Fatalf("offset mismatch: want id %s, got %s", all[2].ID, page2[0].ID)
		}
	})

	t.Run("count matches inserts", func(t *testing.T) {
		total, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != int64(len(titles)) {
			t.Fatalf("want %d, got %d", len(titles), total)
		}
	})
}

func TestPostgresRepository_Health(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgres(db)

	if err := repo.Health(); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
}
