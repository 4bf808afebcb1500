// Copyright 2025 Oskar Olofsson
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oskarjolofsson/swingpipe/internal/config"
)

func TestStaticProviderToken(t *testing.T) {
	p := &StaticProvider{Value: "tok"}
	tok, err := p.Token(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "tok", tok)

	_, err = (&StaticProvider{}).Token(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestStaticProviderCurrentUser(t *testing.T) {
	user, err := (&StaticProvider{Value: "tok", Subject: "u-7"}).CurrentUser(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "u-7", user.ID)

	user, err = (&StaticProvider{Value: "tok"}).CurrentUser(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "local", user.ID)

	_, err = (&StaticProvider{}).CurrentUser(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestNewOAuthProviderRequiresTokenURL(t *testing.T) {
	_, err := NewOAuthProvider(context.Background(), config.Identity{})
	assert.Error(t, err)
}

func TestOAuthProviderMintsAndIdentifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	p, err := NewOAuthProvider(context.Background(), config.Identity{
		TokenURL: srv.URL,
		ClientID: "client-1",
	})
	assert.NoError(t, err)

	tok, err := p.Token(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "at-1", tok)

	user, err := p.CurrentUser(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "client-1", user.ID)
}
