package model

import "time"

// sampleTime es fijo para que las fixtures sean deterministas.
var sampleTime = time.Date(2022, time.January, 16, 14, 40, 0, 0, time.UTC)

// SampleUsers devuelve fixtures mínimas y deterministas de User, para tests y
// desarrollo local. No es un camino de producción.
func SampleUsers[D Data]() []User[D] {
	var data D
	return []User[D]{{
		Data:     data,
		Username: "john",
		Sub:      "123-456",
	}}
}

// SampleBrowserSessions devuelve una BrowserSession por cada sample de User.
func SampleBrowserSessions[D Data]() []BrowserSession[D] {
	users := SampleUsers[D]()
	out := make([]BrowserSession[D], 0, len(users))
	var data D
	for _, u := range users {
		out = append(out, BrowserSession[D]{
			Data:               data,
			User:               u,
			CreatedAt:          sampleTime,
			LastAuthentication: nil,
		})
	}
	return out
}

// SampleClients devuelve fixtures de Client.
func SampleClients[D Data]() []Client[D] {
	var data D
	return []Client[D]{{
		Data:     data,
		ClientID: "client-1",
	}}
}

// SampleSessions devuelve una Session por cada combinación de sample de
// BrowserSession y Client.
func SampleSessions[D Data]() []Session[D] {
	var data D
	out := []Session[D]{}
	for _, bs := range SampleBrowserSessions[D]() {
		bs := bs
		for _, c := range SampleClients[D]() {
			out = append(out, Session[D]{
				Data:           data,
				BrowserSession: &bs,
				Client:         c,
				Scope:          Scope{"openid"},
			})
		}
	}
	return out
}

// SamplePkces devuelve un challenge por método soportado. El challenge S256
// corresponde al verifier "world".
func SamplePkces() []Pkce {
	return []Pkce{
		{ChallengeMethod: CodeChallengeMethodPlain, Challenge: "hello"},
		{ChallengeMethod: CodeChallengeMethodS256, Challenge: "SG6kYiTRu0-2gPNPfJrZao8k7Ii-c-qOWmxlJg6cuKc"},
	}
}
