package emit

import (
	"math"
	"strings"
	"testing"

	"github.com/phobologic/persist/internal/graphbuild"
	"github.com/phobologic/persist/internal/reduce"
	"github.com/phobologic/persist/represent"
)

func newEnv() *represent.Env {
	return &represent.Env{Registry: represent.NewRegistry(), ArrayThreshold: represent.DefaultArrayThreshold}
}

func rootNames(roots []graphbuild.Root) []string {
	names := make([]string, len(roots))
	for i, r := range roots {
		names[i] = r.Name
	}
	return names
}

func buildPlan(t *testing.T, roots []graphbuild.Root, opts reduce.Options) *reduce.Plan {
	t.Helper()
	g, err := graphbuild.Build(roots, newEnv())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	plan, err := reduce.Reduce(g, rootNames(roots), opts)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	return plan
}

func TestEmitFlatProducesVarDecl(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, []graphbuild.Root{{Name: "X", Value: 42}}, reduce.Options{})
	src, err := Emit(plan, Options{PackageName: "archivepkg"})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !strings.Contains(src, "package archivepkg") {
		t.Errorf("missing package clause: %s", src)
	}
	if !strings.Contains(src, "var X = 42") {
		t.Errorf("missing var decl: %s", src)
	}
}

func TestEmitSingleItemModeUsesValueName(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, []graphbuild.Root{{Name: "anything", Value: "hello"}}, reduce.Options{})
	src, err := Emit(plan, Options{PackageName: "archivepkg", SingleItem: true})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !strings.Contains(src, "var Value =") {
		t.Errorf("expected exported Value binding, got: %s", src)
	}
	if strings.Contains(src, "var anything") {
		t.Errorf("original root name should not be used in single-item mode: %s", src)
	}
}

func TestEmitHoistsSortedImports(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, []graphbuild.Root{
		{Name: "A", Value: math.Inf(1)},
		{Name: "B", Value: []int{1, 2}},
	}, reduce.Options{})
	src, err := Emit(plan, Options{PackageName: "archivepkg"})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	idx := strings.Index(src, "import (")
	if idx < 0 {
		t.Fatalf("no import block: %s", src)
	}
	if !strings.Contains(src, `"math"`) {
		t.Errorf("expected math import, got: %s", src)
	}
}

func TestEmitSingleItemRejectsMultipleRoots(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, []graphbuild.Root{
		{Name: "A", Value: 1},
		{Name: "B", Value: 2},
	}, reduce.Options{})
	_, err := Emit(plan, Options{PackageName: "archivepkg", SingleItem: true})
	if err == nil {
		t.Fatal("expected an error for single-item mode with multiple roots")
	}
}

func TestEmitDeclaresSidecarLoader(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, []graphbuild.Root{{Name: "X", Value: 1}}, reduce.Options{})
	src, err := Emit(plan, Options{
		PackageName: "archivepkg",
		DataName:    "_arrays",
		SidecarKeys: []string{"array_0"},
		LoaderExpr:  `sidecar.MustLoad("./_arrays", sidecar.NPY)`,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !strings.Contains(src, "var _arrays = sidecar.MustLoad") {
		t.Errorf("missing loader decl: %s", src)
	}
}

func TestEmitLoaderImportsSidecarPackage(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, []graphbuild.Root{{Name: "X", Value: 1}}, reduce.Options{})
	src, err := Emit(plan, Options{
		PackageName: "archivepkg",
		DataName:    "_arrays",
		SidecarKeys: []string{"array_0"},
		LoaderExpr:  `sidecar.MustLoad("./_arrays", sidecar.NPY)`,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !strings.Contains(src, `"github.com/phobologic/persist/sidecar"`) {
		t.Errorf("loader emitted without the sidecar import: %s", src)
	}
}
