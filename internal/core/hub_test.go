package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/connecta-server/internal/stats"
)

func TestHubJoinDeliversSnapshotInOrder(t *testing.T) {
	hub := startHub(t, Options{DefaultAvatarURL: "default.png"})

	alice := NewClient("a", 0)
	hub.RegisterClient(alice)
	alice.Commands <- &Command{Kind: CommandJoin, Username: "  alice  "}

	want := []EventKind{EventUsersStatus, EventUsers, EventPublicHistory, EventAvatars, EventBackgrounds}
	for i, kind := range want {
		ev := nextEvent(t, alice.Events)
		if ev.Kind != kind {
			t.Fatalf("event %d: got %v, want %v", i, ev.Kind, kind)
		}
		switch ev.Kind {
		case EventUsersStatus:
			wantPresence := []Presence{{Username: "alice", Online: true, Avatar: "default.png"}}
			if diff := cmp.Diff(wantPresence, ev.Presence); diff != "" {
				t.Fatalf("presence mismatch (-want +got):\n%s", diff)
			}
		case EventUsers:
			if diff := cmp.Diff([]string{"alice"}, ev.Names); diff != "" {
				t.Fatalf("users mismatch (-want +got):\n%s", diff)
			}
		case EventPublicHistory:
			if len(ev.Messages) != 0 {
				t.Fatalf("expected empty history, got %+v", ev.Messages)
			}
		}
	}
}

func TestHubPublicMessageAndReactionToggle(t *testing.T) {
	hub := startHub(t, Options{})

	alice := connect(t, hub, "a", "alice")
	bob := connect(t, hub, "b", "bob")

	alice.Commands <- &Command{Kind: CommandPublicMessage, Content: "hi"}

	msgEv := mustEvent(t, bob.Events, EventPublicMessage)
	if msgEv.Message.From != "alice" || msgEv.Message.Content != "hi" || msgEv.Message.To != "" {
		t.Fatalf("unexpected message event: %+v", msgEv)
	}
	echo := mustEvent(t, alice.Events, EventPublicMessage)
	if echo.Message.ID != msgEv.Message.ID {
		t.Fatalf("sender echo has id %q, want %q", echo.Message.ID, msgEv.Message.ID)
	}
	if msgEv.Message.CreatedAt.Location() != time.UTC {
		t.Fatalf("createdAt not UTC: %v", msgEv.Message.CreatedAt)
	}

	bob.Commands <- &Command{Kind: CommandReact, MessageID: msgEv.Message.ID, Reaction: "👍", Scope: ScopePublic}
	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventReactionUpdate)
		if ev.Scope != ScopePublic || ev.MessageID != msgEv.Message.ID {
			t.Fatalf("unexpected reaction event: %+v", ev)
		}
		if diff := cmp.Diff(map[string][]string{"👍": {"bob"}}, ev.Reactions); diff != "" {
			t.Fatalf("reactions mismatch (-want +got):\n%s", diff)
		}
	}

	bob.Commands <- &Command{Kind: CommandReact, MessageID: msgEv.Message.ID, Reaction: "👍", Scope: ScopePublic}
	ev := mustEvent(t, alice.Events, EventReactionUpdate)
	if diff := cmp.Diff(map[string][]string{"👍": {}}, ev.Reactions); diff != "" {
		t.Fatalf("second toggle should empty the list (-want +got):\n%s", diff)
	}
}

func TestHubPrivateMessageReachesOnlyParticipants(t *testing.T) {
	hub := startHub(t, Options{})

	alicePhone := connect(t, hub, "a1", "alice")
	aliceLaptop := connect(t, hub, "a2", "alice")
	bob := connect(t, hub, "b", "bob")
	carol := connect(t, hub, "c", "carol")

	alicePhone.Commands <- &Command{Kind: CommandPrivateMessage, To: "bob", Content: "psst"}

	got := mustEvent(t, bob.Events, EventPrivateMessage)
	if got.Message.From != "alice" || got.Message.To != "bob" || got.Conversation != "alice|bob" {
		t.Fatalf("unexpected private event: %+v", got)
	}
	mustEvent(t, alicePhone.Events, EventPrivateMessage)
	mustEvent(t, aliceLaptop.Events, EventPrivateMessage)
	assertNoEvent(t, carol.Events, EventPrivateMessage)
}

func TestHubPrivateMessageToSelfIsDeliveredOnce(t *testing.T) {
	hub := startHub(t, Options{})
	alice := connect(t, hub, "a", "alice")

	alice.Commands <- &Command{Kind: CommandPrivateMessage, To: "alice", Content: "note"}
	mustEvent(t, alice.Events, EventPrivateMessage)
	assertNoEvent(t, alice.Events, EventPrivateMessage)
}

func TestHubOfflinePrivateHistory(t *testing.T) {
	hub := startHub(t, Options{})

	alice := connect(t, hub, "a", "alice")
	alice.Commands <- &Command{Kind: CommandPrivateMessage, To: "dave", Content: "first"}
	alice.Commands <- &Command{Kind: CommandPrivateMessage, To: "dave", Content: "second"}
	mustEvent(t, alice.Events, EventPrivateMessage)
	mustEvent(t, alice.Events, EventPrivateMessage)

	dave := connect(t, hub, "d", "dave")
	dave.Commands <- &Command{Kind: CommandPrivateHistory, With: "alice"}

	ev := mustEvent(t, dave.Events, EventPrivateHistory)
	if ev.With != "alice" || len(ev.Messages) != 2 {
		t.Fatalf("unexpected history: %+v", ev)
	}
	if ev.Messages[0].Content != "first" || ev.Messages[1].Content != "second" {
		t.Fatalf("history out of order: %+v", ev.Messages)
	}
}

func TestHubUnjoinedCommandsAreDroppedSilently(t *testing.T) {
	hub := startHub(t, Options{})

	ghost := NewClient("g", 0)
	hub.RegisterClient(ghost)
	ghost.Commands <- &Command{Kind: CommandPublicMessage, Content: "boo"}
	ghost.Commands <- &Command{Kind: CommandTyping, Scope: ScopeRoom}
	assertNoEvent(t, ghost.Events, EventError)

	alice := NewClient("a", 0)
	hub.RegisterClient(alice)
	alice.Commands <- &Command{Kind: CommandJoin, Username: "alice"}
	history := mustEvent(t, alice.Events, EventPublicHistory)
	if len(history.Messages) != 0 {
		t.Fatalf("unjoined message was stored: %+v", history.Messages)
	}
}

func TestHubReportsErrorsWhenEnabled(t *testing.T) {
	hub := startHub(t, Options{ReportErrors: true})

	ghost := NewClient("g", 0)
	hub.RegisterClient(ghost)
	ghost.Commands <- &Command{Kind: CommandPublicMessage, Content: "boo"}
	ev := mustEvent(t, ghost.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotJoined {
		t.Fatalf("expected not_joined error, got %+v", ev)
	}

	ghost.Commands <- &Command{Kind: CommandJoin, Username: "   "}
	ev = mustEvent(t, ghost.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request error, got %+v", ev)
	}

	alice := connect(t, hub, "a", "alice")
	cases := []struct {
		name string
		cmd  *Command
		code string
	}{
		{"blank public", &Command{Kind: CommandPublicMessage, Content: " \t "}, ErrCodeEmptyContent},
		{"blank private", &Command{Kind: CommandPrivateMessage, To: "bob", Content: ""}, ErrCodeEmptyContent},
		{"missing recipient", &Command{Kind: CommandPrivateMessage, Content: "hi"}, ErrCodeBadRequest},
		{"unknown message", &Command{Kind: CommandReact, MessageID: "nope", Reaction: "🔥", Scope: ScopePublic}, ErrCodeMessageNotFound},
		{"bad scope", &Command{Kind: CommandReact, MessageID: "x", Reaction: "🔥", Scope: "galaxy"}, ErrCodeBadRequest},
		{"unknown kind", &Command{Kind: CommandKind(99)}, ErrCodeUnknownEvent},
	}
	for _, tc := range cases {
		alice.Commands <- tc.cmd
		ev := mustEvent(t, alice.Events, EventError)
		if ev.Error == nil || ev.Error.Code != tc.code {
			t.Fatalf("%s: expected %s, got %+v", tc.name, tc.code, ev.Error)
		}
	}
}

func TestHubPresenceOnDisconnectAndRejoin(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.FixedZone("X", 3600))
	hub := startHub(t, Options{Now: fixedClock(now)})

	alice := connect(t, hub, "a", "alice")
	bob := connect(t, hub, "b", "bob")
	drain(alice.Events)

	hub.UnregisterClient(bob)

	status := mustEvent(t, alice.Events, EventUsersStatus)
	seen := now.UTC().Truncate(time.Millisecond)
	want := []Presence{
		{Username: "alice", Online: true},
		{Username: "bob", Online: false, LastSeen: &seen},
	}
	if diff := cmp.Diff(want, status.Presence); diff != "" {
		t.Fatalf("presence mismatch (-want +got):\n%s", diff)
	}
	users := mustEvent(t, alice.Events, EventUsers)
	if diff := cmp.Diff([]string{"alice"}, users.Names); diff != "" {
		t.Fatalf("online names mismatch (-want +got):\n%s", diff)
	}

	// Unregistering closes the events channel after whatever is still buffered.
	for range bob.Events {
	}

	connect(t, hub, "b2", "bob")
	status = mustEvent(t, alice.Events, EventUsersStatus)
	for _, p := range status.Presence {
		if p.Username == "bob" && (!p.Online || p.LastSeen != nil) {
			t.Fatalf("rejoin should reset presence, got %+v", p)
		}
	}
}

func TestHubHandlesCommandsSentBeforeUnregister(t *testing.T) {
	hub := startHub(t, Options{})
	observer := connect(t, hub, "o", "observer")

	const rounds = 15
	for i := 0; i < rounds; i++ {
		leaver := connect(t, hub, fmt.Sprintf("l%d", i), fmt.Sprintf("leaver%d", i))
		leaver.Commands <- &Command{Kind: CommandPublicMessage, Content: "bye"}
		hub.UnregisterClient(leaver)

		msg := mustEvent(t, observer.Events, EventPublicMessage)
		assert.Equal(t, fmt.Sprintf("leaver%d", i), msg.Message.From)
		assert.Equal(t, "bye", msg.Message.Content)

		// The leaver still receives its own echo, then its channel is closed.
		var kinds []EventKind
		for ev := range leaver.Events {
			kinds = append(kinds, ev.Kind)
		}
		assert.Contains(t, kinds, EventPublicMessage)
	}

	snap, err := hub.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Snapshot{Connections: 1, OnlineUsers: 1, PublicMessages: rounds}, snap)
}

func TestHubUnregisterTwiceIsSafe(t *testing.T) {
	hub := startHub(t, Options{})
	alice := connect(t, hub, "a", "alice")

	hub.UnregisterClient(alice)
	hub.UnregisterClient(alice)

	for range alice.Events {
	}
	snap, err := hub.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Connections)
}

func TestHubMultiDeviceStaysOnline(t *testing.T) {
	hub := startHub(t, Options{})

	watcher := connect(t, hub, "w", "watcher")
	phone := connect(t, hub, "p", "alice")
	connect(t, hub, "l", "alice")
	drain(watcher.Events)

	hub.UnregisterClient(phone)

	status := mustEvent(t, watcher.Events, EventUsersStatus)
	for _, p := range status.Presence {
		if p.Username == "alice" && !p.Online {
			t.Fatalf("alice should stay online with one connection left: %+v", p)
		}
	}
}

func TestHubTypingScopes(t *testing.T) {
	hub := startHub(t, Options{})

	alicePhone := connect(t, hub, "a1", "alice")
	aliceLaptop := connect(t, hub, "a2", "alice")
	bob := connect(t, hub, "b", "bob")
	carol := connect(t, hub, "c", "carol")

	alicePhone.Commands <- &Command{Kind: CommandTyping, Scope: ScopeRoom}
	for _, c := range []*Client{bob, carol} {
		ev := mustEvent(t, c.Events, EventTyping)
		if ev.User != "alice" || ev.Scope != ScopeRoom {
			t.Fatalf("unexpected typing event: %+v", ev)
		}
	}
	assertNoEvent(t, aliceLaptop.Events, EventTyping)
	assertNoEvent(t, alicePhone.Events, EventTyping)

	alicePhone.Commands <- &Command{Kind: CommandTypingStop, Scope: ScopePrivate, To: "bob"}
	ev := mustEvent(t, bob.Events, EventTypingStop)
	if ev.User != "alice" || ev.Scope != ScopePrivate {
		t.Fatalf("unexpected typing_stop event: %+v", ev)
	}
	assertNoEvent(t, carol.Events, EventTypingStop)
}

func TestHubProfileUpdates(t *testing.T) {
	hub := startHub(t, Options{DefaultAvatarURL: "default.png"})

	watcher := connect(t, hub, "w", "watcher")

	// Profile updates do not require a join.
	anon := NewClient("x", 0)
	hub.RegisterClient(anon)
	anon.Commands <- &Command{Kind: CommandAvatarChange, Username: "alice", URL: "alice.png"}
	anon.Commands <- &Command{Kind: CommandBackgroundUpdate, Username: "alice", URL: "beach.jpg"}

	avatar := mustEvent(t, watcher.Events, EventAvatarUpdate)
	if avatar.User != "alice" || avatar.URL != "alice.png" {
		t.Fatalf("unexpected avatar event: %+v", avatar)
	}
	bg := mustEvent(t, watcher.Events, EventBackgroundUpdate)
	if bg.User != "alice" || bg.URL != "beach.jpg" {
		t.Fatalf("unexpected background event: %+v", bg)
	}

	alice := NewClient("a", 0)
	hub.RegisterClient(alice)
	alice.Commands <- &Command{Kind: CommandJoin, Username: "alice"}

	status := mustEvent(t, alice.Events, EventUsersStatus)
	avatars := map[string]string{}
	for _, p := range status.Presence {
		avatars[p.Username] = p.Avatar
	}
	if diff := cmp.Diff(map[string]string{"alice": "alice.png", "watcher": "default.png"}, avatars); diff != "" {
		t.Fatalf("resolved avatars mismatch (-want +got):\n%s", diff)
	}
	if got := mustEvent(t, alice.Events, EventAvatars).Profiles; got["alice"] != "alice.png" || len(got) != 1 {
		t.Fatalf("unexpected avatars snapshot: %+v", got)
	}
	if got := mustEvent(t, alice.Events, EventBackgrounds).Profiles; got["alice"] != "beach.jpg" {
		t.Fatalf("unexpected backgrounds snapshot: %+v", got)
	}
}

func TestHubPrivateReactionReachesBothParticipants(t *testing.T) {
	hub := startHub(t, Options{})

	alice := connect(t, hub, "a", "alice")
	bob := connect(t, hub, "b", "bob")
	carol := connect(t, hub, "c", "carol")

	alice.Commands <- &Command{Kind: CommandPrivateMessage, To: "bob", Content: "hey"}
	msg := mustEvent(t, bob.Events, EventPrivateMessage).Message

	// carol cannot reach a message outside her conversations.
	carol.Commands <- &Command{Kind: CommandReact, MessageID: msg.ID, Reaction: "❤️", Scope: ScopePrivate, With: "alice"}
	assertNoEvent(t, alice.Events, EventReactionUpdate)

	bob.Commands <- &Command{Kind: CommandReact, MessageID: msg.ID, Reaction: "❤️", Scope: ScopePrivate, With: "alice"}
	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventReactionUpdate)
		if ev.Conversation != "alice|bob" || ev.Scope != ScopePrivate {
			t.Fatalf("unexpected reaction event: %+v", ev)
		}
		if diff := cmp.Diff(map[string][]string{"❤️": {"bob"}}, ev.Reactions); diff != "" {
			t.Fatalf("reactions mismatch (-want +got):\n%s", diff)
		}
	}
	assertNoEvent(t, carol.Events, EventReactionUpdate)
}

func TestHubPublicHistoryLimit(t *testing.T) {
	hub := startHub(t, Options{PublicLogLimit: 3, PublicHistoryLimit: 2})

	alice := connect(t, hub, "a", "alice")
	for _, text := range []string{"one", "two", "three", "four"} {
		alice.Commands <- &Command{Kind: CommandPublicMessage, Content: text}
		mustEvent(t, alice.Events, EventPublicMessage)
	}

	alice.Commands <- &Command{Kind: CommandPublicHistory}
	ev := mustEvent(t, alice.Events, EventPublicHistory)
	var got []string
	for _, m := range ev.Messages {
		got = append(got, m.Content)
	}
	if diff := cmp.Diff([]string{"three", "four"}, got); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}

	snap, err := hub.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Snapshot{Connections: 1, OnlineUsers: 1, PublicMessages: 3}, snap)
}

func TestHubListUsersWithoutJoin(t *testing.T) {
	hub := startHub(t, Options{})
	connect(t, hub, "a", "alice")

	anon := NewClient("x", 0)
	hub.RegisterClient(anon)
	anon.Commands <- &Command{Kind: CommandListUsers}

	status := mustEvent(t, anon.Events, EventUsersStatus)
	require.Len(t, status.Presence, 1)
	assert.Equal(t, "alice", status.Presence[0].Username)
	users := mustEvent(t, anon.Events, EventUsers)
	assert.Equal(t, []string{"alice"}, users.Names)
}

func TestHubSanitizesContent(t *testing.T) {
	hub := startHub(t, Options{
		ReportErrors: true,
		Sanitize: func(s string) string {
			if s == "<b></b>" {
				return ""
			}
			return "clean:" + s
		},
	})
	alice := connect(t, hub, "a", "alice")

	alice.Commands <- &Command{Kind: CommandPublicMessage, Content: "x"}
	ev := mustEvent(t, alice.Events, EventPublicMessage)
	assert.Equal(t, "clean:x", ev.Message.Content)

	alice.Commands <- &Command{Kind: CommandPublicMessage, Content: "<b></b>"}
	errEv := mustEvent(t, alice.Events, EventError)
	assert.Equal(t, ErrCodeEmptyContent, errEv.Error.Code)
}

func TestHubDropsEventsForSlowClient(t *testing.T) {
	su := stats.NewUpdater()
	hub := startHub(t, Options{Stats: su})

	alice := connect(t, hub, "a", "alice")

	slow := NewClient("s", 1)
	hub.RegisterClient(slow)
	slow.Commands <- &Command{Kind: CommandJoin, Username: "slow"}

	for range 5 {
		alice.Commands <- &Command{Kind: CommandPublicMessage, Content: "spam"}
		mustEvent(t, alice.Events, EventPublicMessage)
	}

	assert.Eventually(t, func() bool {
		return su.Value(stats.DroppedEvents) > 0 && su.Value(stats.OnlineUsers) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(5), su.Value(stats.PublicMessages))
	assert.Equal(t, int64(2), su.Value(stats.ActiveConnections))
}

func TestHubReportsMetrics(t *testing.T) {
	m := new(stats.MockProvider)
	m.On("Incr", stats.ActiveConnections).Once()
	m.On("Set", stats.OnlineUsers, int64(1)).Once()
	m.On("Incr", stats.PublicMessages).Once()
	m.On("Incr", stats.DroppedEvents).Maybe()

	hub := startHub(t, Options{Stats: m})
	alice := connect(t, hub, "a", "alice")
	alice.Commands <- &Command{Kind: CommandPublicMessage, Content: "hi"}
	mustEvent(t, alice.Events, EventPublicMessage)

	m.AssertExpectations(t)
	m.AssertNotCalled(t, "Incr", stats.PrivateMessages)
	m.AssertNotCalled(t, "Decr", mock.Anything)
}

func TestHubShutdownClosesClientEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(Options{})
	go hub.Run(ctx)

	alice := NewClient("a", 0)
	hub.RegisterClient(alice)
	alice.Commands <- &Command{Kind: CommandJoin, Username: "alice"}
	mustEvent(t, alice.Events, EventBackgrounds)

	cancel()
	select {
	case <-hub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	for range alice.Events {
	}

	late := NewClient("late", 0)
	hub.RegisterClient(late)
	if _, ok := <-late.Events; ok {
		t.Fatal("expected events channel of late client to be closed")
	}

	// Unregistering after shutdown must not block or panic.
	hub.UnregisterClient(alice)

	if _, err := hub.Stats(context.Background()); err == nil {
		t.Fatal("expected stats error after shutdown")
	}
}
