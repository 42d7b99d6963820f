package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"vibin_matchcore/models"
)

func TestRecordLike_Reciprocity(t *testing.T) {
	tests := []struct {
		name   string
		first  [2]string
		second [2]string
	}{
		{"alice first", [2]string{"alice", "bob"}, [2]string{"bob", "alice"}},
		{"bob first", [2]string{"bob", "alice"}, [2]string{"alice", "bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "alice", "bob")
			ctx := context.Background()

			res, err := f.likes.RecordLike(ctx, tt.first[0], tt.first[1], nil)
			if err != nil {
				t.Fatalf("first like: %v", err)
			}
			if res.Matched {
				t.Fatal("a one-sided like must not match")
			}
			if f.notifier.count(models.NotifyLike, tt.first[1]) != 1 {
				t.Errorf("expected a like notification for %s", tt.first[1])
			}

			res, err = f.likes.RecordLike(ctx, tt.second[0], tt.second[1], nil)
			if err != nil {
				t.Fatalf("second like: %v", err)
			}
			if !res.Matched || res.Match == nil {
				t.Fatal("reciprocal like must match")
			}
			if res.Match.MatchID != models.MatchIDFor("alice", "bob") {
				t.Errorf("MatchID = %s, want the pair's ID", res.Match.MatchID)
			}
			if res.Match.Status != models.MatchActive {
				t.Errorf("Status = %s, want active", res.Match.Status)
			}

			for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
				in, err := f.interactions.Get(ctx, pair[0], pair[1])
				if err != nil {
					t.Fatalf("Get(%v): %v", pair, err)
				}
				if in.Status != models.InteractionMatched || in.MatchID != res.Match.MatchID {
					t.Errorf("%v: status=%s matchId=%s", pair, in.Status, in.MatchID)
				}
			}
			for _, u := range []string{"alice", "bob"} {
				if got := f.notifier.count(models.NotifyMatch, u); got != 1 {
					t.Errorf("match notifications for %s = %d, want 1", u, got)
				}
			}
		})
	}
}

func TestRecordLike_ConcurrentReciprocalLikes(t *testing.T) {
	for i := 0; i < 25; i++ {
		f := newFixture(t, "alice", "bob")
		ctx := context.Background()

		var wg sync.WaitGroup
		results := make([]bool, 2)
		for j, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
			wg.Add(1)
			go func(j int, actor, target string) {
				defer wg.Done()
				res, err := f.likes.RecordLike(ctx, actor, target, nil)
				if err != nil {
					t.Errorf("RecordLike(%s, %s): %v", actor, target, err)
					return
				}
				results[j] = res.Matched
			}(j, pair[0], pair[1])
		}
		wg.Wait()

		if !results[0] && !results[1] {
			t.Fatal("at least one side must observe the match")
		}
		all, err := f.matchRepo.ListByUser(ctx, "alice")
		if err != nil {
			t.Fatalf("ListByUser: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("matches = %d, want exactly 1", len(all))
		}
		for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
			in, _ := f.interactions.Get(ctx, pair[0], pair[1])
			if in == nil || in.Status != models.InteractionMatched {
				t.Fatalf("%v not matched", pair)
			}
		}
	}
}

func TestRecordLike_Errors(t *testing.T) {
	long := strings.Repeat("x", MaxCommentLength+1)

	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture)
		actor   string
		target  string
		comment *string
		want    error
	}{
		{name: "self like", actor: "alice", target: "alice", want: ErrInvalidInput},
		{name: "empty target", actor: "alice", target: "", want: ErrInvalidInput},
		{name: "unknown target", actor: "alice", target: "nobody", want: ErrNotFound},
		{name: "comment too long", actor: "alice", target: "bob", comment: &long, want: ErrInvalidInput},
		{
			name:   "blocked pair",
			setup:  func(t *testing.T, f *fixture) { f.profiles.Block("bob", "alice") },
			actor:  "alice",
			target: "bob",
			want:   ErrForbidden,
		},
		{
			name: "suspended target",
			setup: func(t *testing.T, f *fixture) {
				f.profiles.Save(models.UserProfile{UserHandle: "bob", AccountStatus: models.AccountSuspended})
			},
			actor:  "alice",
			target: "bob",
			want:   ErrForbidden,
		},
		{
			name:   "already matched",
			setup:  func(t *testing.T, f *fixture) { f.match(t, "alice", "bob") },
			actor:  "alice",
			target: "bob",
			want:   ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "alice", "bob")
			if tt.setup != nil {
				tt.setup(t, f)
			}
			_, err := f.likes.RecordLike(context.Background(), tt.actor, tt.target, tt.comment)
			assertKind(t, err, tt.want)
		})
	}
}

func TestRecordLike_RepeatPendingLikeIsAccepted(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	first, err := f.likes.RecordLike(ctx, "alice", "bob", nil)
	if err != nil {
		t.Fatalf("first like: %v", err)
	}
	f.clock.Advance(time.Minute)
	note := "  hi there  "
	second, err := f.likes.RecordLike(ctx, "alice", "bob", &note)
	if err != nil {
		t.Fatalf("repeat like: %v", err)
	}
	if !second.Interaction.CreatedAt.Equal(first.Interaction.CreatedAt) {
		t.Error("repeat like must keep the original creation time")
	}
	if second.Interaction.Comment == nil || *second.Interaction.Comment != "hi there" {
		t.Errorf("Comment = %v, want trimmed note", second.Interaction.Comment)
	}
}

func TestRecordDislike_EndsMatchAndLikeReactivates(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	original := f.match(t, "alice", "bob")

	f.clock.Advance(time.Hour)
	in, err := f.likes.RecordDislike(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("RecordDislike: %v", err)
	}
	if in.Status != models.InteractionDismissed || in.MatchID != "" {
		t.Errorf("dislike stored as status=%s matchId=%s", in.Status, in.MatchID)
	}
	m, err := f.matchRepo.GetByID(ctx, original.MatchID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if m.Status != models.MatchEnded || m.EndReason != models.ReasonDismissed || m.EndedBy != "alice" {
		t.Errorf("match after dislike = %+v", m)
	}

	f.clock.Advance(time.Hour)
	res, err := f.likes.RecordLike(ctx, "alice", "bob", nil)
	if err != nil {
		t.Fatalf("RecordLike: %v", err)
	}
	if !res.Matched {
		t.Fatal("liking again while the other side still likes must rematch")
	}
	if res.Match.MatchID != original.MatchID {
		t.Errorf("reactivated MatchID = %s, want %s", res.Match.MatchID, original.MatchID)
	}
	if !res.Match.CreatedAt.Equal(original.CreatedAt) {
		t.Error("reactivation must keep the original creation time")
	}
	if got := f.notifier.count(models.NotifyMatch, "bob"); got != 2 {
		t.Errorf("match notifications for bob = %d, want 2", got)
	}
}

func TestRecordDislike_WithoutMatch(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	if _, err := f.likes.RecordDislike(ctx, "alice", "bob"); err != nil {
		t.Fatalf("RecordDislike: %v", err)
	}
	if _, err := f.likes.RecordDislike(ctx, "alice", "alice"); err == nil {
		t.Error("self dislike must fail")
	}
	_, err := f.likes.RecordDislike(ctx, "alice", "ghost")
	assertKind(t, err, ErrNotFound)
}

func TestRecordLike_BlockedMatchStoresNothing(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	f.match(t, "alice", "bob")

	if _, err := f.matches.Block(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Block: %v", err)
	}
	if _, err := f.likes.RecordDislike(ctx, "bob", "alice"); err != nil {
		t.Fatalf("RecordDislike: %v", err)
	}
	_, err := f.likes.RecordLike(ctx, "bob", "alice", nil)
	assertKind(t, err, ErrForbidden)

	stored, err := f.interactions.Get(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Action != models.ActionDislike {
		t.Errorf("stored action = %s, want the earlier dislike", stored.Action)
	}
	got, err := f.likes.ListLikesReceived(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("ListLikesReceived: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("alice received %d likes from a blocked match, want 0", len(got))
	}
	if n := f.notifier.count(models.NotifyLike, "alice"); n != 0 {
		t.Errorf("like notifications to alice = %d, want 0", n)
	}
}

func TestListLikesReceived(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol", "dave", "erin")
	ctx := context.Background()

	for _, actor := range []string{"bob", "carol", "dave", "erin"} {
		f.clock.Advance(time.Minute)
		if _, err := f.likes.RecordLike(ctx, actor, "alice", nil); err != nil {
			t.Fatalf("like from %s: %v", actor, err)
		}
	}
	f.profiles.Block("alice", "dave")
	f.profiles.Save(models.UserProfile{UserHandle: "erin", AccountStatus: models.AccountDeleted})

	got, err := f.likes.ListLikesReceived(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("ListLikesReceived: %v", err)
	}
	var actors []string
	for _, l := range got {
		actors = append(actors, l.ActorID)
		if l.Actor == nil || l.Actor.UserHandle != l.ActorID {
			t.Errorf("missing card for %s", l.ActorID)
		}
	}
	if strings.Join(actors, ",") != "carol,bob" {
		t.Errorf("actors = %v, want [carol bob]", actors)
	}
}
