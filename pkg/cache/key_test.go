package cache

import (
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "namespace only",
			key:  Key{Namespace: "token"},
			want: "icims:token",
		},
		{
			name: "namespace and id",
			key:  Key{Namespace: "token", ID: "client-1"},
			want: "icims:token:client-1",
		},
		{
			name: "params sorted",
			key: Key{
				Namespace: "token",
				ID:        "client-1",
				Params: map[string]string{
					"grant":    "client_credentials",
					"audience": "https://api.icims.com/v1/",
				},
			},
			want: "icims:token:client-1:audience=https://api.icims.com/v1/:grant=client_credentials",
		},
		{
			name: "namespace colons trimmed",
			key:  Key{Namespace: ":dir:", ID: "resumes"},
			want: "icims:dir:resumes",
		},
		{
			name: "empty key",
			key:  Key{},
			want: "icims",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_String_Deterministic(t *testing.T) {
	key := Key{
		Namespace: "token",
		ID:        "c",
		Params:    map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"},
	}

	first := key.String()
	for i := 0; i < 50; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q vs %q", got, first)
		}
	}
}
