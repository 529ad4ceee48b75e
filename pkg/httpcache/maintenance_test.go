package httpcache

import (
	"net/http"
	"testing"

	"github.com/pickware/shopware-platform-sub008/internal/testutil"
	"github.com/pickware/shopware-platform-sub008/pkg/config"
)

func TestConfigMaintenanceResolver(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.Maintenance
		remoteAddr string
		want       bool
	}{
		{
			name:       "maintenance off",
			cfg:        config.Maintenance{Enabled: false, AllowedIPs: []string{"10.0.0.1"}},
			remoteAddr: "10.0.0.1:1234",
			want:       false,
		},
		{
			name:       "allowed address",
			cfg:        config.Maintenance{Enabled: true, AllowedIPs: []string{"10.0.0.1"}},
			remoteAddr: "10.0.0.1:1234",
			want:       true,
		},
		{
			name:       "other address",
			cfg:        config.Maintenance{Enabled: true, AllowedIPs: []string{"10.0.0.1"}},
			remoteAddr: "10.0.0.2:1234",
			want:       false,
		},
		{
			name:       "cidr",
			cfg:        config.Maintenance{Enabled: true, AllowedIPs: []string{"192.168.0.0/16"}},
			remoteAddr: "192.168.4.20:80",
			want:       true,
		},
		{
			name:       "bare address from real ip middleware",
			cfg:        config.Maintenance{Enabled: true, AllowedIPs: []string{"2001:db8::1"}},
			remoteAddr: "2001:db8::1",
			want:       true,
		},
		{
			name:       "unparsable entries ignored",
			cfg:        config.Maintenance{Enabled: true, AllowedIPs: []string{"not-an-ip", "10.0.0.1"}},
			remoteAddr: "10.0.0.1:1",
			want:       true,
		},
		{
			name:       "unparsable remote addr",
			cfg:        config.Maintenance{Enabled: true, AllowedIPs: []string{"10.0.0.1"}},
			remoteAddr: "@unix",
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testutil.NewRequest(http.MethodGet, "http://shop.test/")
			r.RemoteAddr = tt.remoteAddr

			if got := NewConfigMaintenanceResolver(tt.cfg).IsMaintenanceRequest(r); got != tt.want {
				t.Errorf("IsMaintenanceRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}
