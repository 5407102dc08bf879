// Package roster keeps the character list: heroes, villains and their allies.
package roster

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"persona/internal/storage"
	"persona/internal/validation"
)

type Role string

const (
	RoleHero    Role = "Hero"
	RoleVillain Role = "Villain"
	RoleAlly    Role = "Ally"
)

var Roles = []Role{RoleHero, RoleVillain, RoleAlly}

// Next cycles Hero -> Villain -> Ally -> Hero.
func (r Role) Next() Role {
	i := slices.Index(Roles, r)
	return Roles[(i+1)%len(Roles)]
}

// ParseRole accepts a role name in any letter case.
func ParseRole(v string) (Role, error) {
	for _, r := range Roles {
		if strings.EqualFold(strings.TrimSpace(v), string(r)) {
			return r, nil
		}
	}
	return "", ErrInvalidRole
}

// normalizeRole maps stored role names, including the Italian ones older
// snapshots used, onto the closed set.
func normalizeRole(v string) Role {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "villain":
		return RoleVillain
	case "ally", "alleato":
		return RoleAlly
	default:
		return RoleHero
	}
}

var (
	ErrNameRequired = errors.New("name is required")
	ErrInvalidRole  = errors.New("role must be Hero, Villain or Ally")
	ErrNotFound     = errors.New("character not found")
)

type Character struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
	Role  Role   `json:"role"`
	Image string `json:"image,omitempty"`
}

func (c *Character) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Alias string `json:"alias"`
		Role  string `json:"role"`
		Image string `json:"image"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Character{ID: raw.ID, Name: raw.Name, Alias: raw.Alias, Role: normalizeRole(raw.Role), Image: raw.Image}
	return nil
}

// Draft is the form state for adding or editing a character.
type Draft struct {
	Name  string `validate:"notblank"`
	Alias string
	Image string
	Role  Role   `validate:"oneof=Hero Villain Ally"`
}

// FromCharacter fills a draft with c's current values, used to reset an edit form.
func FromCharacter(c Character) Draft {
	return Draft{Name: c.Name, Alias: c.Alias, Image: c.Image, Role: c.Role}
}

func (d Draft) clean() (Draft, error) {
	d.Name = validation.SanitizeText(d.Name)
	d.Alias = validation.SanitizeText(d.Alias)
	d.Image = validation.SanitizeText(d.Image)
	if d.Role == "" {
		d.Role = RoleHero
	}
	err := validation.Validate.Struct(d)
	switch {
	case err == nil:
		return d, nil
	case validation.HasFailure(err, "Name"):
		return d, ErrNameRequired
	case validation.HasFailure(err, "Role"):
		return d, ErrInvalidRole
	default:
		return d, err
	}
}

type Roster struct {
	kv    storage.KV
	log   *zap.Logger
	chars []Character
}

func New(kv storage.KV, log *zap.Logger) *Roster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Roster{kv: kv, log: log}
}

// Load reads the roster. Missing or unreadable snapshots give an empty roster.
func (r *Roster) Load(ctx context.Context) error {
	data, err := r.kv.Get(ctx, storage.KeyCharacters)
	if errors.Is(err, storage.ErrNotFound) {
		r.chars = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("load characters: %w", err)
	}
	var chars []Character
	if err := json.Unmarshal(data, &chars); err != nil {
		r.log.Warn("discarding corrupt character snapshot", zap.Error(err))
		r.chars = nil
		return nil
	}
	for i := range chars {
		if chars[i].ID == "" {
			chars[i].ID = newID()
		}
	}
	r.chars = chars
	return nil
}

func (r *Roster) save(ctx context.Context, chars []Character) error {
	if chars == nil {
		chars = []Character{}
	}
	data, err := json.Marshal(chars)
	if err != nil {
		return fmt.Errorf("encode characters: %w", err)
	}
	if err := r.kv.Set(ctx, storage.KeyCharacters, data); err != nil {
		return fmt.Errorf("save characters: %w", err)
	}
	r.chars = chars
	return nil
}

func (r *Roster) All() []Character {
	return slices.Clone(r.chars)
}

func (r *Roster) Get(id string) (Character, bool) {
	i := r.index(id)
	if i < 0 {
		return Character{}, false
	}
	return r.chars[i], true
}

func (r *Roster) index(id string) int {
	return slices.IndexFunc(r.chars, func(c Character) bool { return c.ID == id })
}

func (r *Roster) Add(ctx context.Context, d Draft) (Character, error) {
	d, err := d.clean()
	if err != nil {
		return Character{}, err
	}
	c := Character{ID: newID(), Name: d.Name, Alias: d.Alias, Role: d.Role, Image: d.Image}
	next := append(slices.Clone(r.chars), c)
	if err := r.save(ctx, next); err != nil {
		return Character{}, err
	}
	r.log.Debug("character added", zap.String("id", c.ID), zap.String("role", string(c.Role)))
	return c, nil
}

func (r *Roster) Update(ctx context.Context, id string, d Draft) (Character, error) {
	d, err := d.clean()
	if err != nil {
		return Character{}, err
	}
	i := r.index(id)
	if i < 0 {
		return Character{}, ErrNotFound
	}
	next := slices.Clone(r.chars)
	next[i] = Character{ID: id, Name: d.Name, Alias: d.Alias, Role: d.Role, Image: d.Image}
	if err := r.save(ctx, next); err != nil {
		return Character{}, err
	}
	return next[i], nil
}

// Delete removes the character. Callers confirm with the user first.
func (r *Roster) Delete(ctx context.Context, id string) error {
	i := r.index(id)
	if i < 0 {
		return ErrNotFound
	}
	next := slices.Delete(slices.Clone(r.chars), i, i+1)
	return r.save(ctx, next)
}

// Search matches q case-insensitively against name or alias.
func (r *Roster) Search(q string) []Character {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return r.All()
	}
	var out []Character
	for _, c := range r.chars {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Alias), q) {
			out = append(out, c)
		}
	}
	return out
}

type Groups struct {
	Heroes   []Character
	Villains []Character
}

// Groups splits the search result: villains on one side, everyone else on the other.
func (r *Roster) Groups(q string) Groups {
	var g Groups
	for _, c := range r.Search(q) {
		if c.Role == RoleVillain {
			g.Villains = append(g.Villains, c)
		} else {
			g.Heroes = append(g.Heroes, c)
		}
	}
	return g
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func newID() string {
	if u, err := uuid.NewRandom(); err == nil {
		return u.String()
	}
	return fallbackID()
}

func fallbackID() string {
	var b strings.Builder
	b.WriteString("c_")
	max := big.NewInt(int64(len(idAlphabet)))
	for i := 0; i < 8; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			n = big.NewInt(int64(i))
		}
		b.WriteByte(idAlphabet[n.Int64()])
	}
	return b.String()
}
