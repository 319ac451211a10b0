package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("select 1;"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestSplitStatements(t *testing.T) {
	script := `
create table a (id text primary key);
insert into a values ('x;y');
create function f() returns void as $$
begin
  perform 1;
end;
$$ language plpgsql;
`
	stmts := splitStatements(script)
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(stmts), stmts)
	}
	if !strings.Contains(stmts[1], "'x;y'") {
		t.Fatalf("semicolon inside quote was split: %q", stmts[1])
	}
	if !strings.Contains(stmts[2], "end;") {
		t.Fatalf("semicolon inside dollar quote was split: %q", stmts[2])
	}
}

func TestSqlFilesSkipsDownForSeeds(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0001_init.up.sql", "0001_init.down.sql", "0002_seed.sql"} {
		writeFile(t, dir, name)
	}

	ups, err := sqlFiles(dir, upSuffix)
	if err != nil {
		t.Fatalf("sqlFiles up: %v", err)
	}
	if len(ups) != 1 || ups[0].name != "0001_init.up.sql" {
		t.Fatalf("unexpected up files: %+v", ups)
	}

	seeds, err := sqlFiles(dir, ".sql")
	if err != nil {
		t.Fatalf("sqlFiles seeds: %v", err)
	}
	for _, f := range seeds {
		if strings.HasSuffix(f.name, downSuffix) {
			t.Fatalf("down file surfaced in seed listing: %s", f.name)
		}
	}
}

func TestSqlFilesMissingDir(t *testing.T) {
	files, err := sqlFiles("/definitely/not/here", ".sql")
	if err != nil {
		t.Fatalf("expected nil error for missing dir, got %v", err)
	}
	if files != nil {
		t.Fatalf("expected no files, got %+v", files)
	}
}
