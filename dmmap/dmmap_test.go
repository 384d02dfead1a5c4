package dmmap_test

import (
	"os"
	"path/filepath"
	"testing"

	"dmc/dmmap"
)

const sampleMap = `
"a" = (/turf/space,/area/space)
"b" = (/turf/floor,/obj/item/table,/area/station)

(1,1,1) = {"
aaaaaaaa
abbbbbba
aaaaaaaa
"}
`

func TestParseExtractsLegendAndBlocks(t *testing.T) {
	dm, err := dmmap.Parse(sampleMap)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := dm.Legend["a"]; len(got) != 2 || got[0] != "/turf/space" || got[1] != "/area/space" {
		t.Errorf("legend[a] = %v", got)
	}
	if got := dm.Legend["b"]; len(got) != 3 {
		t.Errorf("legend[b] = %v, want 3 paths", got)
	}

	if len(dm.Blocks) != 1 {
		t.Fatalf("expected 1 coordinate block, got %d", len(dm.Blocks))
	}
	block := dm.Blocks[0]
	if block.X != 1 || block.Y != 1 || block.Z != 1 {
		t.Errorf("block coords = (%d,%d,%d), want (1,1,1)", block.X, block.Y, block.Z)
	}
	if len(block.Rows) != 3 || block.Rows[1] != "abbbbbba" {
		t.Fatalf("block rows = %v", block.Rows)
	}
}

func TestKeyWidthAndSplitTiles(t *testing.T) {
	dm, err := dmmap.Parse(sampleMap)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if width := dm.KeyWidth(); width != 1 {
		t.Errorf("KeyWidth() = %d, want 1", width)
	}

	tiles := dmmap.SplitTiles(dm.Blocks[0].Rows[1], dm.KeyWidth())
	if len(tiles) != 8 || tiles[1] != "b" || tiles[6] != "b" {
		t.Errorf("SplitTiles = %v", tiles)
	}
}

func TestKeyWidthUsesLongestLegendKey(t *testing.T) {
	src := `"aa" = (/turf/space)
"b" = (/turf/floor)

(1,1,1) = {"
aab
"}
`
	dm, err := dmmap.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if width := dm.KeyWidth(); width != 2 {
		t.Errorf("KeyWidth() = %d, want 2", width)
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	if _, err := dmmap.Parse(`"a" = /turf/space)`); err == nil {
		t.Fatalf("expected a parse error for a legend missing its opening paren")
	}
}

func TestLoadReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "station.dmm")
	if err := os.WriteFile(path, []byte(sampleMap), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dm, err := dmmap.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(dm.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(dm.Blocks))
	}
}

func TestLoadAllCollectsErrorsWithoutAborting(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.dmm")
	if err := os.WriteFile(good, []byte(sampleMap), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	missing := filepath.Join(dir, "missing.dmm")

	maps, errs := dmmap.LoadAll([]string{good, missing})
	if len(maps) != 1 {
		t.Errorf("expected 1 successfully loaded map, got %d", len(maps))
	}
	if len(errs) != 1 {
		t.Errorf("expected 1 error for the missing file, got %d", len(errs))
	}
}
