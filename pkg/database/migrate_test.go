package database

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
)

func TestCountMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000001_init.up.sql":    {Data: []byte("CREATE TABLE a ();")},
		"migrations/000001_init.down.sql":  {Data: []byte("DROP TABLE a;")},
		"migrations/000002_audit.up.sql":   {Data: []byte("ALTER TABLE a;")},
		"migrations/000002_audit.down.sql": {Data: []byte("ALTER TABLE a;")},
	}
	n, err := countMigrations(fsys)
	if err != nil || n != 2 {
		t.Errorf("期望 2 个 up 迁移，实际 %d (%v)", n, err)
	}
}

func TestEmbeddedMigrations_Paired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("读取嵌入迁移失败: %v", err)
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	for name := range names {
		if strings.HasSuffix(name, ".up.sql") && !names[strings.TrimSuffix(name, ".up.sql")+".down.sql"] {
			t.Errorf("%s 缺少对应的 down 迁移", name)
		}
	}
	if n, _ := countMigrations(migrationsFS); n == 0 {
		t.Error("至少应嵌入一个迁移")
	}
}

func TestEmbeddedMigrations_AuditColumnsAreText(t *testing.T) {
	b, err := fs.ReadFile(migrationsFS, "migrations/000001_init.up.sql")
	if err != nil {
		t.Fatalf("读取初始迁移失败: %v", err)
	}
	for _, line := range strings.Split(string(b), "\n") {
		f := strings.Fields(line)
		if len(f) >= 2 && strings.HasSuffix(f[0], "_by") && !strings.HasPrefix(strings.ToUpper(f[1]), "VARCHAR") {
			t.Errorf("审计列应为 VARCHAR: %s", strings.TrimSpace(line))
		}
	}
}
