package component

import (
	"math"
	"testing"
)

func TestQuatRotate(t *testing.T) {
	q := AxisAngle(Vec3{Z: 1}, math.Pi/2)
	got := q.Rotate(Vec3{X: 1})
	if !got.ApproxEq(Vec3{Y: 1}) {
		t.Errorf("rotate x by 90deg around z = %+v, want (0,1,0)", got)
	}
	half := AxisAngle(Vec3{Z: 1}, math.Pi/4)
	if got := half.Mul(half).Rotate(Vec3{X: 1}); !got.ApproxEq(Vec3{Y: 1}) {
		t.Errorf("two 45deg turns = %+v", got)
	}
}

func TestComposeMatchesManualTRS(t *testing.T) {
	tr := Transform{
		Translation: Vec3{1, 2, 3},
		Rotation:    AxisAngle(Vec3{Y: 1}, math.Pi/3),
		Scale:       Vec3{2, 2, 2},
	}
	p := Vec3{1, -1, 0.5}
	want := tr.Rotation.Rotate(p.Mul(tr.Scale)).Add(tr.Translation)
	if got := tr.Matrix().Point(p); !got.ApproxEq(want) {
		t.Errorf("Point = %+v, want %+v", got, want)
	}
}

func TestMat4Mul(t *testing.T) {
	a := Compose(Vec3{X: 5}, Identity, One)
	b := Compose(Vec3{Y: 1}, Identity, Vec3{2, 2, 2})
	if got := IdentityMat.Mul(a); got != a {
		t.Error("identity * a != a")
	}
	got := a.Mul(b).Point(Vec3{X: 1})
	if !got.ApproxEq(Vec3{7, 1, 0}) {
		t.Errorf("a*b point = %+v", got)
	}
	if tr := a.Mul(b).Translation(); !tr.ApproxEq(Vec3{5, 1, 0}) {
		t.Errorf("translation = %+v", tr)
	}
}

func TestVec3(t *testing.T) {
	v := Vec3{3, 4, 0}
	if v.Len() != 5 {
		t.Errorf("len = %v", v.Len())
	}
	if c := (Vec3{X: 1}).Cross(Vec3{Y: 1}); c != (Vec3{Z: 1}) {
		t.Errorf("cross = %+v", c)
	}
	if d := v.Sub(Vec3{1, 1, 1}).Dot(One); d != 4 {
		t.Errorf("dot = %v", d)
	}
}
