// Command signer is a reference client for the relay: it dials a
// relayd websocket endpoint and drives a real multi-party DKG ceremony
// over relay-carried events (kinds 28000-28003), using the same
// dkg/frost/session state machines the relay itself never touches.
// It is not a full production client — no reconnect/backoff policy,
// one ceremony per process — but it exercises the wire codec and the
// session registry the way an actual participant would.
package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kgroups/rootkey/curve"
	"github.com/kgroups/rootkey/dkg"
	"github.com/kgroups/rootkey/group"
	"github.com/kgroups/rootkey/registry"
	"github.com/kgroups/rootkey/relay"
	"github.com/kgroups/rootkey/session"
	"github.com/kgroups/rootkey/transport"
)

const ceremonySubID = "dkg"

var relayURLFlag = &cli.StringFlag{
	Name:     "relay",
	Usage:    "websocket URL of the relay to dial, e.g. ws://localhost:8080/",
	Required: true,
	EnvVars:  []string{"SIGNER_RELAY"},
}

var sessionFlag = &cli.StringFlag{
	Name:     "session",
	Usage:    "hex-encoded 32-byte ceremony session id, shared by all participants",
	Required: true,
	EnvVars:  []string{"SIGNER_SESSION"},
}

var secretFlag = &cli.StringFlag{
	Name:    "secret",
	Usage:   "hex-encoded long-term secp256k1 secret key (random if omitted)",
	EnvVars: []string{"SIGNER_SECRET"},
}

var peersFlag = &cli.StringFlag{
	Name:     "peers",
	Usage:    "comma-separated hex pubkeys of all participants, sorted ascending",
	Required: true,
	EnvVars:  []string{"SIGNER_PEERS"},
}

var indexFlag = &cli.IntFlag{
	Name:     "index",
	Usage:    "this participant's 1-based index into --peers",
	Required: true,
	EnvVars:  []string{"SIGNER_INDEX"},
}

var thresholdFlag = &cli.IntFlag{
	Name:     "threshold",
	Usage:    "minimum signers required to sign after the ceremony completes",
	Required: true,
	EnvVars:  []string{"SIGNER_THRESHOLD"},
}

var devFlag = &cli.BoolFlag{
	Name:    "dev",
	Usage:   "development mode: verbose logging",
	EnvVars: []string{"SIGNER_DEV"},
}

func main() {
	app := &cli.App{
		Name:  "signer",
		Usage: "run one participant's side of a relay-carried DKG ceremony",
		Flags: []cli.Flag{
			relayURLFlag, sessionFlag, secretFlag, peersFlag,
			indexFlag, thresholdFlag, devFlag,
		},
		Action: Run,
	}
	if err := app.Run(os.Args); err != nil {
		zap.S().Fatalw("signer", "err", err)
	}
}

// Run drives one full DKG ceremony to completion and prints the
// resulting key package's public material.
func Run(c *cli.Context) error {
	logger, err := newLogger(c.Bool(devFlag.Name))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	g := curve.Secp256k1{}

	sessionBytes, err := curve.DecodeHex(c.String(sessionFlag.Name))
	if err != nil || len(sessionBytes) != 32 {
		return fmt.Errorf("signer: --session must be 32 hex-encoded bytes: %w", err)
	}
	var sessionID [32]byte
	copy(sessionID[:], sessionBytes)

	secret, err := loadOrGenerateSecret(g, c.String(secretFlag.Name))
	if err != nil {
		return err
	}
	myPub := g.NewPoint().ScalarMult(secret, g.Generator())
	myPubHex := curve.EncodeHex(myPub.Bytes())

	peers, err := parsePeers(g, c.String(peersFlag.Name))
	if err != nil {
		return err
	}
	maxSigners := len(peers)
	myIndex := dkg.ParticipantIndex(c.Int(indexFlag.Name))

	p, err := session.NewParticipant(session.Config{
		Group:        g,
		Threshold:    c.Int(thresholdFlag.Name),
		MaxSigners:   maxSigners,
		Participants: peers,
		MyIndex:      myIndex,
		MySecretKey:  secret,
		SessionID:    sessionID,
	})
	if err != nil {
		return fmt.Errorf("signer: start participant: %w", err)
	}

	reg := registry.New()
	regID := registry.ID(sessionID)
	if err := reg.MustInsert(regID, p); err != nil {
		return fmt.Errorf("signer: register session: %w", err)
	}
	defer reg.Delete(regID)

	ws, _, err := websocket.DefaultDialer.DialContext(c.Context, c.String(relayURLFlag.Name), nil)
	if err != nil {
		return fmt.Errorf("signer: dial relay: %w", err)
	}
	defer func() { _ = ws.Close() }()

	ce := &ceremony{
		log:         sugar,
		ws:          ws,
		group:       g,
		secret:      secret,
		pub:         myPub,
		pubHex:      myPubHex,
		sessionHex:  c.String(sessionFlag.Name),
		participant: p,
		peers:       peers,
		maxSigners:  maxSigners,
	}
	kp, err := ce.run(c.Context)
	if err != nil {
		return err
	}

	sugar.Infow("dkg ceremony finalized",
		"index", kp.Index,
		"threshold", kp.Threshold,
		"maxSigners", kp.MaxSigners,
		"groupPubkey", curve.EncodeHex(kp.GroupPubkey.Bytes()))
	fmt.Println(curve.EncodeHex(kp.GroupPubkey.Bytes()))
	return nil
}

func loadOrGenerateSecret(g group.Group, hexSecret string) (group.Scalar, error) {
	if hexSecret == "" {
		return g.RandomScalar(rand.Reader)
	}
	raw, err := curve.DecodeHex(hexSecret)
	if err != nil {
		return nil, fmt.Errorf("signer: decode --secret: %w", err)
	}
	s, err := g.NewScalar().SetBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("signer: --secret out of range: %w", err)
	}
	return s, nil
}

func parsePeers(g group.Group, csv string) ([]group.Point, error) {
	fields := strings.Split(csv, ",")
	peers := make([]group.Point, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		raw, err := curve.DecodeHex(f)
		if err != nil {
			return nil, fmt.Errorf("signer: decode peer pubkey %q: %w", f, err)
		}
		pt, err := g.NewPoint().SetBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("signer: peer pubkey %q: %w", f, err)
		}
		peers = append(peers, pt)
	}
	sort.Slice(peers, func(i, j int) bool {
		return compareBytes(peers[i].Bytes(), peers[j].Bytes()) < 0
	})
	return peers, nil
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}

// ceremony drives one participant's half of the relay conversation:
// subscribe, publish round 1, ingest peers' round 1/round 2 packages
// as they arrive, and finalize once every peer is accounted for.
type ceremony struct {
	log         *zap.SugaredLogger
	ws          *websocket.Conn
	group       group.Group
	secret      group.Scalar
	pub         group.Point
	pubHex      string
	sessionHex  string
	participant *session.Participant
	peers       []group.Point // sorted, indexed the same way as dkg.Config.Participants
	maxSigners  int

	round1Seen int
	round2Seen int
}

func (ce *ceremony) run(ctx context.Context) (*dkg.KeyPackage, error) {
	filters := []transport.Filter{
		{Kinds: []int64{relay.KindDKGRound1, relay.KindDKGRound2}, H: []string{ce.sessionHex}},
	}
	req, err := transport.EncodeReqFrame(ceremonySubID, filters)
	if err != nil {
		return nil, err
	}
	if err := ce.ws.WriteMessage(websocket.TextMessage, req); err != nil {
		return nil, fmt.Errorf("signer: subscribe: %w", err)
	}

	if err := ce.publishRound1(); err != nil {
		return nil, err
	}

	for {
		_, raw, err := ce.ws.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("signer: relay connection closed: %w", err)
		}
		frame, err := transport.DecodeRelayFrame(raw)
		if err != nil {
			ce.log.Warnw("malformed relay frame", "err", err)
			continue
		}
		switch frame.Type {
		case transport.FrameAuth:
			if err := ce.respondToChallenge(frame.Challenge); err != nil {
				return nil, err
			}
		case transport.FrameEvent:
			kp, done, err := ce.handleEvent(frame.Event)
			if err != nil {
				return nil, err
			}
			if done {
				return kp, nil
			}
		case transport.FrameNotice:
			ce.log.Warnw("relay notice", "text", frame.Message)
		case transport.FrameOK:
			if !frame.OK {
				ce.log.Warnw("relay rejected event", "id", frame.OKEventID, "message", frame.Message)
			}
		}
	}
}

func (ce *ceremony) respondToChallenge(challenge string) error {
	evt := &transport.Event{
		CreatedAt: time.Now().Unix(),
		Kind:      relay.KindRelayAuth,
		Tags:      [][]string{{"challenge", challenge}},
	}
	if err := transport.Sign(ce.secret, ce.pub, evt); err != nil {
		return fmt.Errorf("signer: sign AUTH response: %w", err)
	}
	frame, err := transport.EncodeClientAuthFrame(evt)
	if err != nil {
		return err
	}
	return ce.ws.WriteMessage(websocket.TextMessage, frame)
}

type wireRound1 struct {
	Index       uint32   `json:"index"`
	Commitments []string `json:"commitments"`
}

type wireRound2 struct {
	From       uint32 `json:"from"`
	To         uint32 `json:"to"`
	Ciphertext string `json:"ciphertext"`
}

func (ce *ceremony) publishRound1() error {
	pkg, err := ce.participant.GenerateRound1(rand.Reader)
	if err != nil {
		return fmt.Errorf("signer: round1: %w", err)
	}
	commitments := make([]string, len(pkg.Commitments))
	for i, c := range pkg.Commitments {
		commitments[i] = curve.EncodeHex(c.Bytes())
	}
	content, err := json.Marshal(wireRound1{Index: uint32(pkg.Index), Commitments: commitments})
	if err != nil {
		return err
	}
	return ce.publish(relay.KindDKGRound1, content, [][]string{{"h", ce.sessionHex}})
}

func (ce *ceremony) publishRound2(pkgs []*dkg.Round2Package) error {
	for _, pkg := range pkgs {
		toHex := curve.EncodeHex(ce.peers[pkg.ToIndex-1].Bytes())
		content, err := json.Marshal(wireRound2{
			From:       uint32(pkg.FromIndex),
			To:         uint32(pkg.ToIndex),
			Ciphertext: curve.EncodeHex(pkg.Ciphertext),
		})
		if err != nil {
			return err
		}
		tags := [][]string{{"h", ce.sessionHex}, {"p", toHex}}
		if err := ce.publish(relay.KindDKGRound2, content, tags); err != nil {
			return err
		}
	}
	return nil
}

func (ce *ceremony) publish(kind int64, content []byte, tags [][]string) error {
	evt := &transport.Event{
		CreatedAt: time.Now().Unix(),
		Kind:      kind,
		Tags:      tags,
		Content:   string(content),
	}
	if err := transport.Sign(ce.secret, ce.pub, evt); err != nil {
		return fmt.Errorf("signer: sign event: %w", err)
	}
	frame, err := transport.EncodeClientEventFrame(evt)
	if err != nil {
		return err
	}
	return ce.ws.WriteMessage(websocket.TextMessage, frame)
}

func (ce *ceremony) handleEvent(e *transport.Event) (*dkg.KeyPackage, bool, error) {
	if e.Pubkey == ce.pubHex {
		return nil, false, nil // our own broadcast, echoed back
	}
	switch e.Kind {
	case relay.KindDKGRound1:
		return nil, false, ce.ingestRound1(e)
	case relay.KindDKGRound2:
		toHex, _ := e.Tag("p")
		if toHex != ce.pubHex {
			return nil, false, nil // addressed to another participant
		}
		return ce.ingestRound2(e)
	}
	return nil, false, nil
}

func (ce *ceremony) ingestRound1(e *transport.Event) error {
	var w wireRound1
	if err := json.Unmarshal([]byte(e.Content), &w); err != nil {
		return fmt.Errorf("signer: decode round1 content: %w", err)
	}
	commitments := make([]group.Point, len(w.Commitments))
	for i, hexC := range w.Commitments {
		raw, err := curve.DecodeHex(hexC)
		if err != nil {
			return fmt.Errorf("signer: decode round1 commitment: %w", err)
		}
		pt, err := ce.group.NewPoint().SetBytes(raw)
		if err != nil {
			return fmt.Errorf("signer: round1 commitment: %w", err)
		}
		commitments[i] = pt
	}
	pkg := &dkg.Round1Package{Index: dkg.ParticipantIndex(w.Index), Commitments: commitments}
	if err := ce.participant.IngestRound1(pkg); err != nil {
		return fmt.Errorf("signer: ingest round1 from %d: %w", pkg.Index, err)
	}
	ce.round1Seen++
	ce.log.Infow("ingested round1", "from", pkg.Index, "have", ce.round1Seen, "need", ce.maxSigners-1)
	if ce.round1Seen == ce.maxSigners-1 {
		pkgs, err := ce.participant.GenerateRound2()
		if err != nil {
			return fmt.Errorf("signer: generate round2: %w", err)
		}
		return ce.publishRound2(pkgs)
	}
	return nil
}

func (ce *ceremony) ingestRound2(e *transport.Event) (*dkg.KeyPackage, bool, error) {
	var w wireRound2
	if err := json.Unmarshal([]byte(e.Content), &w); err != nil {
		return nil, false, fmt.Errorf("signer: decode round2 content: %w", err)
	}
	ciphertext, err := curve.DecodeHex(w.Ciphertext)
	if err != nil {
		return nil, false, fmt.Errorf("signer: decode round2 ciphertext: %w", err)
	}
	pkg := &dkg.Round2Package{
		FromIndex:  dkg.ParticipantIndex(w.From),
		ToIndex:    dkg.ParticipantIndex(w.To),
		Ciphertext: ciphertext,
	}
	if err := ce.participant.IngestRound2(pkg); err != nil {
		return nil, false, fmt.Errorf("signer: ingest round2 from %d: %w", pkg.FromIndex, err)
	}
	ce.round2Seen++
	ce.log.Infow("ingested round2", "from", pkg.FromIndex, "have", ce.round2Seen, "need", ce.maxSigners-1)
	if ce.round2Seen == ce.maxSigners-1 {
		kp, err := ce.participant.Finalize()
		if err != nil {
			return nil, false, fmt.Errorf("signer: finalize: %w", err)
		}
		return kp, true, nil
	}
	return nil, false, nil
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
