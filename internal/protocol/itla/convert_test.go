package itla

import "testing"

func TestFrequencyRegisters(t *testing.T) {
	tests := []struct {
		name       string
		nm         float64
		wantTHz    uint16
		wantTenths uint16
	}{
		{
			// 299792458/1550.0 = 193414.489... GHz
			name:       "C波段中心1550nm",
			nm:         1550.0,
			wantTHz:    193,
			wantTenths: 4144,
		},
		{
			// 299792458/1515.0 = 197882.82... GHz
			name:       "下边界1515nm",
			nm:         1515.0,
			wantTHz:    197,
			wantTenths: 8828,
		},
		{
			// 299792458/1570.0 = 190950.61... GHz
			name:       "上边界1570nm",
			nm:         1570.0,
			wantTHz:    190,
			wantTenths: 9506,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thz, tenths := FrequencyRegisters(tt.nm)
			if thz != tt.wantTHz || tenths != tt.wantTenths {
				t.Errorf("FrequencyRegisters(%.1f) = (%d, %d), expected (%d, %d)",
					tt.nm, thz, tenths, tt.wantTHz, tt.wantTenths)
			}
		})
	}
}

// TestFrequencyRegistersDeterministic 同一输入换算结果必须可复现
func TestFrequencyRegistersDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		thz, tenths := FrequencyRegisters(1550.0)
		if thz != 193 || tenths != 4144 {
			t.Fatalf("第%d次换算结果漂移: (%d, %d)", i, thz, tenths)
		}
	}
}
