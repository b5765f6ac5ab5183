package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hazyhaar/a11ywatch/dbopen"
	"github.com/hazyhaar/a11ywatch/rule"
	"github.com/hazyhaar/a11ywatch/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlSettings = `
rules:
  tag-name:
    enabled: true
  page-title:
    enabled: true
    params:
      min_length: "3"
  link-target:
    enabled: false
`

const tomlSettings = `
[rules.tag-name]
enabled = true

[rules.page-title]
enabled = true
[rules.page-title.params]
min_length = "3"

[rules.link-target]
enabled = false
`

func expected() rule.Settings {
	return rule.Settings{
		"tag-name":    {Enabled: true},
		"page-title":  {Enabled: true, Params: map[string]string{"min_length": "3"}},
		"link-target": {Enabled: false},
	}
}

func TestDecodeFormats(t *testing.T) {
	y, err := Decode([]byte(yamlSettings), YAML)
	require.NoError(t, err)
	assert.Equal(t, expected(), y)

	tm, err := Decode([]byte(tomlSettings), TOML)
	require.NoError(t, err)
	assert.Equal(t, expected(), tm)

	_, err = Decode([]byte("rules: ["), YAML)
	assert.Error(t, err)

	_, err = Decode(nil, Format("ini"))
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "rules.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlSettings), 0o644))
	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, expected(), s)

	_, err = LoadFile(filepath.Join(dir, "rules.ini"))
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	_, err = LoadFile(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestSaveFileTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, SaveFile(path, expected()))

	back, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, expected(), back)
}

func TestValidate(t *testing.T) {
	reg := rules.Registry()
	assert.NoError(t, Validate(expected(), reg))

	err := Validate(rule.Settings{"tag-nmae": {}, "aria-atrs": {}}, reg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownRule))
	assert.Contains(t, err.Error(), "aria-atrs, tag-nmae")
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestMerge(t *testing.T) {
	base := rule.Settings{"a": {Enabled: true}, "b": {Enabled: true}}
	out := Merge(base, rule.Settings{"b": {Enabled: false}, "c": {Enabled: true}})
	assert.Equal(t, rule.Settings{"a": {Enabled: true}, "b": {Enabled: false}, "c": {Enabled: true}}, out)
	assert.True(t, base["b"].Enabled, "base untouched")
}

func TestDatabase(t *testing.T) {
	ctx := context.Background()
	db := dbopen.OpenMemory(t)
	require.NoError(t, Init(ctx, db))

	s, err := Load(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, s)

	require.NoError(t, Put(ctx, db, "page-title", rule.Options{Enabled: true, Params: map[string]string{"min_length": "3"}}))
	require.NoError(t, Put(ctx, db, "tag-name", rule.Options{Enabled: true}))
	require.NoError(t, Put(ctx, db, "tag-name", rule.Options{Enabled: false}))

	s, err = Load(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, rule.Settings{
		"page-title": {Enabled: true, Params: map[string]string{"min_length": "3"}},
		"tag-name":   {Enabled: false},
	}, s)

	require.NoError(t, Delete(ctx, db, "tag-name"))
	require.NoError(t, Delete(ctx, db, "never-stored"))
	s, err = Load(ctx, db)
	require.NoError(t, err)
	assert.Len(t, s, 1)
}

func TestLive(t *testing.T) {
	initial := rule.Settings{"a": {Enabled: true}}
	l := NewLive(initial)
	initial["a"] = rule.Options{Enabled: false}
	assert.True(t, l.Snapshot()["a"].Enabled, "NewLive copies its input")

	var seen []int
	l.OnChange(func(s rule.Settings) { seen = append(seen, len(s)) })

	before := l.Snapshot()
	l.Update("b", rule.Options{Enabled: true})
	assert.Len(t, before, 1, "old snapshots are immutable")
	assert.Len(t, l.Snapshot(), 2)

	l.Remove("a")
	assert.Equal(t, rule.Settings{"b": {Enabled: true}}, l.Snapshot())

	l.Set(rule.Settings{})
	assert.Empty(t, l.Snapshot())
	assert.Equal(t, int64(3), l.Version())
	assert.Equal(t, []int{2, 1, 0}, seen)
}

func TestFileWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: {}\n"), 0o644))

	live := NewLive(nil)
	fw, err := NewFileWatcher(path, func(s rule.Settings) error {
		live.Set(s)
		return nil
	}, WatchOptions{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fw.Run(ctx)

	require.NoError(t, os.WriteFile(path, []byte(yamlSettings), 0o644))
	require.Eventually(t, func() bool {
		return live.Snapshot()["tag-name"].Enabled
	}, 3*time.Second, 10*time.Millisecond)

	reloads := fw.Reloads()
	require.NoError(t, os.WriteFile(path, []byte("rules: ["), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.True(t, live.Snapshot()["tag-name"].Enabled, "a broken file keeps the previous settings")
	assert.Equal(t, reloads, fw.Reloads())
}

func TestFileWatcherRejectsUnknownFormat(t *testing.T) {
	_, err := NewFileWatcher(filepath.Join(t.TempDir(), "rules.ini"), func(rule.Settings) error { return nil }, WatchOptions{})
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestDBWatcherReloads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "settings.db")
	writer, err := dbopen.Open(path, dbopen.WithSchema(Schema))
	require.NoError(t, err)
	defer writer.Close()
	reader, err := dbopen.Open(path)
	require.NoError(t, err)
	defer reader.Close()
	reader.SetMaxOpenConns(1)

	live := NewLive(nil)
	w := NewDBWatcher(reader, func(s rule.Settings) error {
		live.Set(s)
		return nil
	}, WatchOptions{Interval: 10 * time.Millisecond})
	go w.Run(ctx)

	require.Eventually(t, func() bool { return w.Stats().Checks > 0 }, 3*time.Second, 5*time.Millisecond)
	require.NoError(t, Put(ctx, writer, "tag-name", rule.Options{Enabled: true}))

	require.Eventually(t, func() bool {
		return live.Snapshot()["tag-name"].Enabled
	}, 3*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, w.Stats().Reloads, int64(1))
}
