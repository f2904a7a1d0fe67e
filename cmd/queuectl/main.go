// Package main provides the queue control CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/osa030/guildqueue/internal/api/httpapi"
)

var (
	app    = kingpin.New("queuectl", "guildqueue control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "API token (or set API_TOKEN env)").Envar("API_TOKEN").String()
	tenant = app.Flag("tenant", "Guild ID (or set GUILD_ID env)").Envar("GUILD_ID").Required().String()

	// status command
	statusCmd = app.Command("status", "Show queue status")

	// tracks command
	tracksCmd   = app.Command("tracks", "List upcoming tracks").Alias("ls")
	tracksStart = tracksCmd.Flag("start", "First index").Default("0").Int64()
	tracksEnd   = tracksCmd.Flag("end", "Last index (-1 for all)").Default("-1").Int64()

	// add command
	addCmd       = app.Command("add", "Add a track")
	addEncoded   = addCmd.Arg("encoded", "Encoded track").Required().String()
	addTitle     = addCmd.Flag("title", "Track title").String()
	addAuthor    = addCmd.Flag("author", "Track author").String()
	addURI       = addCmd.Flag("uri", "Track URI").String()
	addLength    = addCmd.Flag("length", "Track length (0 for a stream)").Default("0s").Duration()
	addRequester = addCmd.Flag("requester", "Requester user ID").String()

	// remove command
	removeCmd   = app.Command("remove", "Remove a track by index").Alias("rm")
	removeIndex = removeCmd.Arg("index", "Track index").Required().Int64()

	// move command
	moveCmd  = app.Command("move", "Move a track")
	moveFrom = moveCmd.Arg("from", "Source index").Required().Int64()
	moveTo   = moveCmd.Arg("to", "Destination index").Required().Int64()

	// shuffle command
	shuffleCmd = app.Command("shuffle", "Shuffle upcoming tracks")

	// clear-tracks command
	clearTracksCmd = app.Command("clear-tracks", "Remove all upcoming tracks")

	// start command
	startCmd = app.Command("start", "Start playback")

	// skip command
	skipCmd = app.Command("skip", "Skip the current track")

	// pause command
	pauseCmd    = app.Command("pause", "Pause playback")
	pauseSystem = pauseCmd.Flag("system", "Mark the pause as system-initiated").Bool()

	// resume command
	resumeCmd = app.Command("resume", "Resume playback")

	// volume command
	volumeCmd   = app.Command("volume", "Set the volume")
	volumeValue = volumeCmd.Arg("volume", "Volume (0-1000)").Required().Int()

	// replay command
	replayCmd     = app.Command("replay", "Set replay mode")
	replayEnabled = replayCmd.Arg("enabled", "on or off").Required().Enum("on", "off")

	// seek command
	seekCmd      = app.Command("seek", "Seek within the current track")
	seekPosition = seekCmd.Arg("position", "Position (e.g. 1m30s)").Required().Duration()

	// bind-text command
	bindTextCmd     = app.Command("bind-text", "Bind the text channel")
	bindTextChannel = bindTextCmd.Arg("channel-id", "Text channel ID").Required().String()

	// unbind-text command
	unbindTextCmd = app.Command("unbind-text", "Unbind the text channel")

	// join command
	joinCmd     = app.Command("join", "Create a playback session")
	joinChannel = joinCmd.Arg("voice-channel-id", "Voice channel ID").Required().String()
	joinDeaf    = joinCmd.Flag("self-deaf", "Join deafened").Default("true").Bool()

	// leave command
	leaveCmd = app.Command("leave", "Destroy the playback session")

	// clear command
	clearCmd = app.Command("clear", "Delete all queue state")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := newClient(*server, *token, *tenant)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch command {
	case statusCmd.FullCommand():
		err = status(ctx, client)
	case tracksCmd.FullCommand():
		err = listTracks(ctx, client, *tracksStart, *tracksEnd)
	case addCmd.FullCommand():
		err = addTrack(ctx, client)
	case removeCmd.FullCommand():
		err = removeTrack(ctx, client, *removeIndex)
	case moveCmd.FullCommand():
		err = simple(ctx, client, "POST", "/tracks/move", map[string]int64{"from": *moveFrom, "to": *moveTo}, "Track moved")
	case shuffleCmd.FullCommand():
		err = simple(ctx, client, "POST", "/tracks/shuffle", nil, "Tracks shuffled")
	case clearTracksCmd.FullCommand():
		err = simple(ctx, client, "DELETE", "/tracks", nil, "Tracks cleared")
	case startCmd.FullCommand():
		err = start(ctx, client)
	case skipCmd.FullCommand():
		err = skip(ctx, client)
	case pauseCmd.FullCommand():
		err = simple(ctx, client, "POST", "/pause", map[string]bool{"system": *pauseSystem}, "Playback paused")
	case resumeCmd.FullCommand():
		err = simple(ctx, client, "POST", "/resume", nil, "Playback resumed")
	case volumeCmd.FullCommand():
		err = setVolume(ctx, client, *volumeValue)
	case replayCmd.FullCommand():
		enabled := *replayEnabled == "on"
		err = simple(ctx, client, "PUT", "/replay", map[string]bool{"enabled": enabled}, "Replay "+*replayEnabled)
	case seekCmd.FullCommand():
		err = simple(ctx, client, "POST", "/seek", map[string]int64{"position_ms": seekPosition.Milliseconds()}, "Seeked to "+seekPosition.String())
	case bindTextCmd.FullCommand():
		err = simple(ctx, client, "PUT", "/text-channel", map[string]string{"channel_id": *bindTextChannel}, "Text channel bound")
	case unbindTextCmd.FullCommand():
		err = simple(ctx, client, "DELETE", "/text-channel", nil, "Text channel unbound")
	case joinCmd.FullCommand():
		err = join(ctx, client)
	case leaveCmd.FullCommand():
		err = simple(ctx, client, "DELETE", "/session", nil, "Session destroyed")
	case clearCmd.FullCommand():
		err = simple(ctx, client, "DELETE", "", nil, "Queue cleared")
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func simple(ctx context.Context, c *client, method, path string, body any, done string) error {
	if err := c.do(ctx, method, path, body, nil); err != nil {
		return err
	}
	fmt.Println(done)
	return nil
}

func status(ctx context.Context, c *client) error {
	var s httpapi.QueueView
	if err := c.do(ctx, "GET", "", nil, &s); err != nil {
		return err
	}

	fmt.Printf("\n=== QUEUE %s ===\n", s.Tenant)
	fmt.Printf("Upcoming: %d\n", s.Count)
	fmt.Printf("Volume: %d\n", s.Volume)
	fmt.Printf("Replay: %v\n", s.Replay)
	if s.SystemPaused {
		fmt.Println("Paused by system")
	}
	if s.TextChannelID != "" {
		fmt.Printf("Text Channel: %s\n", s.TextChannelID)
	}

	if s.Session != nil {
		fmt.Println("\nSession:")
		fmt.Printf("  ID: %s\n", s.Session.ID)
		fmt.Printf("  Voice Channel: %s\n", s.Session.VoiceChannelID)
		fmt.Printf("  State: %s\n", s.Session.State)
		fmt.Printf("  Created: %s\n", s.Session.CreatedAt)
	} else {
		fmt.Println("\nNo session")
	}

	if s.NowPlaying != nil {
		t := s.NowPlaying.Track
		fmt.Println("\nNow Playing:")
		fmt.Printf("  %s\n", formatTrack(t))
		if t.URI != "" {
			fmt.Printf("  URL: %s\n", t.URI)
		}
		fmt.Printf("  Position: %s\n", formatPosition(s.NowPlaying.PositionMs, t))
		if t.Requester != "" {
			fmt.Printf("  Requested by: %s\n", t.Requester)
		}
	} else {
		fmt.Println("\nNothing playing")
	}
	fmt.Println()
	return nil
}

func listTracks(ctx context.Context, c *client, startIdx, endIdx int64) error {
	var tracks []httpapi.TrackView
	path := fmt.Sprintf("/tracks?start=%d&end=%d", startIdx, endIdx)
	if err := c.do(ctx, "GET", path, nil, &tracks); err != nil {
		return err
	}

	fmt.Printf("Tracks (%d):\n", len(tracks))
	for _, t := range tracks {
		index := int64(0)
		if t.Index != nil {
			index = *t.Index
		}
		fmt.Printf("  %3d: %s\n", index, formatTrack(t))
	}
	return nil
}

func addTrack(ctx context.Context, c *client) error {
	req := map[string]any{
		"tracks": []map[string]any{{
			"encoded":   *addEncoded,
			"title":     *addTitle,
			"author":    *addAuthor,
			"uri":       *addURI,
			"length_ms": addLength.Milliseconds(),
		}},
	}
	if *addRequester != "" {
		req["requester"] = map[string]string{"id": *addRequester}
	}

	var resp httpapi.AddTracksResponse
	if err := c.do(ctx, "POST", "/tracks", req, &resp); err != nil {
		return err
	}
	if resp.Added > 0 {
		fmt.Printf("Added %d track(s)\n", resp.Added)
	}
	for _, r := range resp.Rejected {
		fmt.Printf("Rejected: %s\n", r.Code)
	}
	return nil
}

func removeTrack(ctx context.Context, c *client, index int64) error {
	var removed httpapi.TrackView
	if err := c.do(ctx, "DELETE", fmt.Sprintf("/tracks/%d", index), nil, &removed); err != nil {
		return err
	}
	fmt.Printf("Removed: %s\n", formatTrack(removed))
	return nil
}

func start(ctx context.Context, c *client) error {
	var resp struct {
		Started bool `json:"started"`
	}
	if err := c.do(ctx, "POST", "/start", nil, &resp); err != nil {
		return err
	}
	if resp.Started {
		fmt.Println("Playback started")
	} else {
		fmt.Println("Already playing or nothing to play")
	}
	return nil
}

func skip(ctx context.Context, c *client) error {
	var resp struct {
		Playing bool `json:"playing"`
	}
	if err := c.do(ctx, "POST", "/skip", nil, &resp); err != nil {
		return err
	}
	if resp.Playing {
		fmt.Println("Track skipped")
	} else {
		fmt.Println("Track skipped, queue is empty")
	}
	return nil
}

func setVolume(ctx context.Context, c *client, volume int) error {
	var change struct {
		Previous int `json:"previous"`
		Next     int `json:"next"`
	}
	if err := c.do(ctx, "PUT", "/volume", map[string]int{"volume": volume}, &change); err != nil {
		return err
	}
	fmt.Printf("Volume: %d -> %d\n", change.Previous, change.Next)
	return nil
}

func join(ctx context.Context, c *client) error {
	req := map[string]any{
		"voice_channel_id": *joinChannel,
		"connect":          map[string]any{"self_deaf": *joinDeaf},
	}
	var s httpapi.SessionView
	if err := c.do(ctx, "POST", "/session", req, &s); err != nil {
		return err
	}
	fmt.Printf("Session %s on %s (%s)\n", s.ID, s.VoiceChannelID, s.State)
	return nil
}

func formatTrack(t httpapi.TrackView) string {
	var b strings.Builder
	b.WriteString(t.Title)
	if t.Author != "" {
		b.WriteString(" - ")
		b.WriteString(t.Author)
	}
	if t.Stream {
		b.WriteString(" [LIVE]")
	} else {
		fmt.Fprintf(&b, " (%s)", (time.Duration(t.LengthMs) * time.Millisecond).String())
	}
	return b.String()
}

func formatPosition(positionMs int64, t httpapi.TrackView) string {
	pos := (time.Duration(positionMs) * time.Millisecond).Truncate(time.Second)
	if t.Stream {
		return pos.String()
	}
	length := (time.Duration(t.LengthMs) * time.Millisecond).Truncate(time.Second)
	return pos.String() + " / " + length.String()
}
