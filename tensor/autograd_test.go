package tensor

import "testing"

func TestBackwardAddMul(t *testing.T) {
	// z = sum(a * b + a): dz/da = b + 1, dz/db = a
	a, _ := New([]float32{2, 3}, 2)
	b, _ := New([]float32{4, 5}, 2)
	a.RequiresGrad(true)
	b.RequiresGrad(true)

	prod, err := Mul(a, b)
	if err != nil {
		t.Fatalf("Mul failed: %v", err)
	}
	sum, err := Add(prod, a)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	z, err := Sum(sum)
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	if err := z.Backward(); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}

	wantA := []float32{5, 6}
	wantB := []float32{2, 3}
	for i := range wantA {
		if a.Grad().Data[i] != wantA[i] {
			t.Errorf("dz/da[%d] = %v, want %v", i, a.Grad().Data[i], wantA[i])
		}
		if b.Grad().Data[i] != wantB[i] {
			t.Errorf("dz/db[%d] = %v, want %v", i, b.Grad().Data[i], wantB[i])
		}
	}
}

func TestBackwardBroadcastReduce(t *testing.T) {
	// bias of shape [2] broadcast over [3,2] rows accumulates row gradients.
	x, _ := Ones(3, 2)
	bias, _ := New([]float32{1, 2}, 2)
	bias.RequiresGrad(true)

	y, err := Add(x, bias)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	z, _ := Sum(y)
	if err := z.Backward(); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	g := bias.Grad()
	if !shapesEqual(g.Shape, []int{2}) {
		t.Fatalf("grad shape = %v, want [2]", g.Shape)
	}
	for i := range g.Data {
		if g.Data[i] != 3 {
			t.Errorf("grad[%d] = %v, want 3", i, g.Data[i])
		}
	}
}

func TestBackwardMatMul(t *testing.T) {
	// z = sum(x @ w): dz/dw[k,j] = sum_i x[i,k]
	x, _ := New([]float32{1, 2, 3, 4}, 2, 2)
	w, _ := New([]float32{1, 0, 0, 1}, 2, 2)
	w.RequiresGrad(true)

	y, err := MatMul(x, w)
	if err != nil {
		t.Fatalf("MatMul failed: %v", err)
	}
	z, _ := Sum(y)
	if err := z.Backward(); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	want := []float32{4, 4, 6, 6}
	for i, v := range want {
		if w.Grad().Data[i] != v {
			t.Errorf("dz/dw[%d] = %v, want %v", i, w.Grad().Data[i], v)
		}
	}
}

func TestBackwardMeanAndReLU(t *testing.T) {
	x, _ := New([]float32{-1, 2, -3, 4}, 4)
	x.RequiresGrad(true)

	r, _ := ReLU(x)
	m, _ := Mean(r)
	if err := m.Backward(); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	want := []float32{0, 0.25, 0, 0.25}
	for i, v := range want {
		if x.Grad().Data[i] != v {
			t.Errorf("grad[%d] = %v, want %v", i, x.Grad().Data[i], v)
		}
	}
}

func TestBackwardRequiresScalar(t *testing.T) {
	x, _ := Ones(2, 2)
	x.RequiresGrad(true)
	y, _ := Add(x, x)
	if err := y.Backward(); err == nil {
		t.Errorf("expected error for non-scalar Backward")
	}
}

func TestGradAccumulationAndZero(t *testing.T) {
	x := FromScalar(3).RequiresGrad(true)
	for i := 0; i < 2; i++ {
		y, _ := Mul(x, x)
		s, _ := Sum(y)
		if err := s.Backward(); err != nil {
			t.Fatalf("Backward failed: %v", err)
		}
	}
	if v := x.Grad().Data[0]; v != 12 {
		t.Errorf("accumulated grad = %v, want 12", v)
	}
	x.ZeroGrad()
	if x.Grad() != nil {
		t.Errorf("grad not cleared")
	}
}

func TestNoGradDisablesRecording(t *testing.T) {
	x := FromScalar(2).RequiresGrad(true)
	var y *Tensor
	err := NoGrad(func() error {
		var e error
		y, e = Mul(x, x)
		return e
	})
	if err != nil {
		t.Fatalf("NoGrad failed: %v", err)
	}
	if y.creator != nil {
		t.Errorf("graph recorded inside NoGrad")
	}
}
