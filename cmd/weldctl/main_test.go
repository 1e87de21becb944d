package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setupEnv готовит каталог источника и файловое хранилище.
func setupEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "data_json")

	files := map[string]string{
		"mp/data-wire-mp.json":        `{"wireDataMP":[{"id":1,"brand":"Св-08Г2С","type":"Проволока","diameter":"1.2"}]}`,
		"mp/data-welders-mp.json":     `{"weldersMP":[{"fio":"Иванов И.И.","stamp":"A1","validUntil":"01-01-2030"}]}`,
		"data-specialists.json":       `{"Иванов И.И.":[{"cert":"C1"}]}`,
		"mp/data-techprocess-mp.json": `{"techprocessMP":[]}`,
	}
	for name, content := range files {
		p := filepath.Join(src, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	t.Setenv("WR_SOURCE_URL", "")
	t.Setenv("WR_SOURCE_DIR", src)
	t.Setenv("WR_KV_BACKEND", "file")
	t.Setenv("WR_KV_PATH", filepath.Join(root, "kv"))
	t.Setenv("WR_LOG_LEVEL", "error")
	return root
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("weldctl %s: ошибка %v, stderr: %s", strings.Join(args, " "), err, errOut.String())
	}
	return out.String()
}

func TestBackupsLifecycle(t *testing.T) {
	root := setupEnv(t)

	out := run(t, "backups", "create", "-d", "Перед обновлением")
	_, rest, ok := strings.Cut(out, "Резервная копия создана: ")
	if !ok {
		t.Fatalf("неожиданный вывод create: %q", out)
	}
	id, _, _ := strings.Cut(rest, " ")

	if out := run(t, "backups", "list"); !strings.Contains(out, id) || !strings.Contains(out, "Перед обновлением") {
		t.Errorf("list не содержит копию %s:\n%s", id, out)
	}

	if out := run(t, "commits"); !strings.Contains(out, "Создана резервная копия: Перед обновлением") {
		t.Errorf("журнал не содержит коммит создания:\n%s", out)
	}

	outDir := filepath.Join(root, "out")
	run(t, "backups", "export", id, "-o", outDir)
	matches, err := filepath.Glob(filepath.Join(outDir, "backup_*.json"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("файл резервной копии не найден: %v %v", matches, err)
	}

	run(t, "backups", "delete", id)
	if out := run(t, "backups", "list"); strings.Contains(out, id) {
		t.Errorf("копия %s осталась после удаления:\n%s", id, out)
	}
}

func TestExport(t *testing.T) {
	root := setupEnv(t)
	outDir := filepath.Join(root, "out")

	run(t, "export", "-o", outDir)
	if m, _ := filepath.Glob(filepath.Join(outDir, "all_data_export_*.json")); len(m) != 1 {
		t.Errorf("выгрузка всех данных не найдена: %v", m)
	}

	run(t, "export", "-c", "welders", "-o", outDir)
	if m, _ := filepath.Glob(filepath.Join(outDir, "welders_data_*.json")); len(m) != 1 {
		t.Errorf("выгрузка сварщиков не найдена: %v", m)
	}
}

func TestExport_Errors(t *testing.T) {
	setupEnv(t)

	for _, args := range [][]string{
		{"export", "-c", "pipes"},
		{"export", "-c", "techprocess"},
		{"backups", "delete", "missing"},
		{"backups", "export"},
	} {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		if err := cmd.Execute(); err == nil {
			t.Errorf("weldctl %s: ожидалась ошибка", strings.Join(args, " "))
		}
	}
}
