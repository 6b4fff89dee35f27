package progress

type Avatar struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Image         string `json:"image"`
	RequiredLevel int    `json:"requiredLevel"`
}

// Catalog is the ordered, static list of avatars.
type Catalog []Avatar

func DefaultCatalog() Catalog {
	return Catalog{
		{ID: 1, Name: "Academy Student", Image: "🎯", RequiredLevel: 1},
		{ID: 2, Name: "Genin", Image: "🌀", RequiredLevel: 5},
		{ID: 3, Name: "Chunin", Image: "⚔️", RequiredLevel: 10},
		{ID: 4, Name: "Jonin", Image: "🔥", RequiredLevel: 15},
		{ID: 5, Name: "Hokage", Image: "👑", RequiredLevel: 20},
	}
}

func (c Catalog) Get(id int) (Avatar, bool) {
	for _, a := range c {
		if a.ID == id {
			return a, true
		}
	}
	return Avatar{}, false
}

// UnlockedAt returns the avatar whose required level is exactly level.
// When several match, the last one in catalog order wins.
func (c Catalog) UnlockedAt(level int) (Avatar, bool) {
	var (
		found  Avatar
		exists bool
	)
	for _, a := range c {
		if a.RequiredLevel == level {
			found, exists = a, true
		}
	}
	return found, exists
}

// Available lists the avatars a user of the given level may pick.
func (c Catalog) Available(level int) []Avatar {
	available := make([]Avatar, 0, len(c))
	for _, a := range c {
		if a.RequiredLevel <= level {
			available = append(available, a)
		}
	}
	return available
}
