package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"smartchef/internal/config"
	"smartchef/internal/domain"
	"smartchef/internal/service"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

var tiktokEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.tiktok.com/v2/auth/authorize",
	TokenURL: "https://open.tiktokapis.com/v2/oauth/token/",
}

var instagramEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.facebook.com/v19.0/dialog/oauth",
	TokenURL: "https://graph.facebook.com/v19.0/oauth/access_token",
}

// Registry agrupa las configuraciones OAuth de cada proveedor social y sabe
// convertir un authorization code en un perfil externo normalizado. El core
// de identidad solo confia en perfiles producidos aqui.
type Registry struct {
	configs map[string]*oauth2.Config
	client  *http.Client
}

func NewRegistry(cfg *config.Config) *Registry {
	callback := func(provider string) string {
		return cfg.ServerURL + "/auth/" + provider + "/callback"
	}
	return &Registry{
		configs: map[string]*oauth2.Config{
			domain.ProviderGoogle: {
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     googleoauth.Endpoint,
				Scopes:       []string{"openid", "profile", "email"},
				RedirectURL:  callback(domain.ProviderGoogle),
			},
			domain.ProviderTikTok: {
				ClientID:     cfg.TikTokClientKey,
				ClientSecret: cfg.TikTokClientSecret,
				Endpoint:     tiktokEndpoint,
				Scopes:       []string{"user.info.basic"},
				RedirectURL:  callback(domain.ProviderTikTok),
			},
			domain.ProviderInstagram: {
				ClientID:     cfg.InstagramClientID,
				ClientSecret: cfg.InstagramClientSecret,
				Endpoint:     instagramEndpoint,
				Scopes:       []string{"instagram_basic", "public_profile"},
				RedirectURL:  callback(domain.ProviderInstagram),
			},
		},
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Supported indica si hay configuracion para el proveedor.
func (r *Registry) Supported(provider string) bool {
	_, ok := r.configs[provider]
	return ok
}

// AuthCodeURL construye la URL de autorizacion del proveedor.
func (r *Registry) AuthCodeURL(provider, state string) (string, error) {
	conf, ok := r.configs[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	opts := []oauth2.AuthCodeOption{}
	if provider == domain.ProviderGoogle {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", "select_account"))
	}
	if provider == domain.ProviderTikTok {
		// TikTok usa client_key en lugar de client_id.
		opts = append(opts, oauth2.SetAuthURLParam("client_key", conf.ClientID))
	}
	return conf.AuthCodeURL(state, opts...), nil
}

// FetchProfile intercambia el code y obtiene el perfil del proveedor.
func (r *Registry) FetchProfile(ctx context.Context, provider, code string) (service.ExternalProfile, error) {
	conf, ok := r.configs[provider]
	if !ok {
		return service.ExternalProfile{}, ErrUnknownProvider
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)

	var opts []oauth2.AuthCodeOption
	if provider == domain.ProviderTikTok {
		opts = append(opts, oauth2.SetAuthURLParam("client_key", conf.ClientID))
	}
	token, err := conf.Exchange(ctx, code, opts...)
	if err != nil {
		return service.ExternalProfile{}, fmt.Errorf("%s token exchange: %w", provider, err)
	}

	switch provider {
	case domain.ProviderGoogle:
		return r.fetchGoogleProfile(ctx, token.AccessToken)
	case domain.ProviderTikTok:
		return tiktokProfileFromToken(token)
	case domain.ProviderInstagram:
		return r.fetchInstagramProfile(ctx, token.AccessToken)
	}
	return service.ExternalProfile{}, ErrUnknownProvider
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (r *Registry) fetchGoogleProfile(ctx context.Context, accessToken string) (service.ExternalProfile, error) {
	var info googleUserInfo
	if err := r.getJSON(ctx, "https://www.googleapis.com/oauth2/v2/userinfo", accessToken, &info); err != nil {
		return service.ExternalProfile{}, fmt.Errorf("fetch google user info: %w", err)
	}
	return service.ExternalProfile{
		Provider:    domain.ProviderGoogle,
		ProviderID:  info.ID,
		DisplayName: info.Name,
		Email:       info.Email,
		PictureURL:  info.Picture,
	}, nil
}

// tiktokProfileFromToken arma el perfil con los extras que TikTok adjunta a
// la respuesta del token; TikTok no expone email.
func tiktokProfileFromToken(token *oauth2.Token) (service.ExternalProfile, error) {
	openID, _ := token.Extra("open_id").(string)
	if openID == "" {
		return service.ExternalProfile{}, errors.New("tiktok token without open_id")
	}
	displayName, _ := token.Extra("display_name").(string)
	if displayName == "" {
		displayName = "TikTok User"
	}
	avatarURL, _ := token.Extra("avatar_url").(string)
	return service.ExternalProfile{
		Provider:    domain.ProviderTikTok,
		ProviderID:  openID,
		DisplayName: displayName,
		PictureURL:  avatarURL,
	}, nil
}

type instagramUserInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (r *Registry) fetchInstagramProfile(ctx context.Context, accessToken string) (service.ExternalProfile, error) {
	var info instagramUserInfo
	if err := r.getJSON(ctx, "https://graph.facebook.com/me?fields=id,name", accessToken, &info); err != nil {
		return service.ExternalProfile{}, fmt.Errorf("fetch instagram user info: %w", err)
	}
	return service.ExternalProfile{
		Provider:    domain.ProviderInstagram,
		ProviderID:  info.ID,
		DisplayName: info.Name,
		PictureURL:  fmt.Sprintf("https://graph.facebook.com/%s/picture?type=large", info.ID),
	}, nil
}

func (r *Registry) getJSON(ctx context.Context, url, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
