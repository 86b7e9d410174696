package zkteco

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetUserValidatesBounds(t *testing.T) {
	c := NewClient("127.0.0.1", 4370, 0, 0)

	cases := []struct {
		name string
		u    *User
	}{
		{"uid too low", &User{UID: 0, UserID: "1"}},
		{"uid too high", &User{UID: 3001, UserID: "1"}},
		{"userId too long", &User{UID: 1, UserID: "1234567890"}},
		{"name too long", &User{UID: 1, UserID: "1", Name: "123456789012345678901234X"}},
		{"password too long", &User{UID: 1, UserID: "1", Password: "123456789"}},
		{"cardno too long", &User{UID: 1, UserID: "1", CardNo: 12345678901}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := c.SetUser(context.Background(), tc.u)
			assert.Error(t, err)
			var zerr *ZKError
			assert.ErrorAs(t, err, &zerr)
			assert.Equal(t, EINVALID, zerr.Code)
		})
	}
}
