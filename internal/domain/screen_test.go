package domain

import "testing"

func TestScreenRect(t *testing.T) {
	r := NewScreenRect(10, 20, 800, 600)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"MinX", r.MinX(), 10},
		{"MinY", r.MinY(), 20},
		{"MaxX", r.MaxX(), 810},
		{"MaxY", r.MaxY(), 620},
		{"CenterX", r.CenterX(), 410},
		{"CenterY", r.CenterY(), 320},
		{"AspectRatio", r.AspectRatio(), 800.0 / 600.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestScreenRectIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		rect ScreenRect
		want bool
	}{
		{"zero value", ScreenRect{}, true},
		{"zero width", NewScreenRect(0, 0, 0, 10), true},
		{"negative height", NewScreenRect(0, 0, 10, -1), true},
		{"offset origin", NewScreenRect(-50, -50, 10, 10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rect.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
			if tt.want && tt.rect.AspectRatio() != 0 {
				t.Errorf("AspectRatio() of empty rect = %v, want 0", tt.rect.AspectRatio())
			}
		})
	}
}

func TestScreenRectString(t *testing.T) {
	if got := NewScreenRect(0, 0, 800, 600).String(); got != "RECT(0,0 800x600)" {
		t.Errorf("String() = %q", got)
	}
}
