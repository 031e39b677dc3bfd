package dumper

// Capture copies the whole module out of the target. The returned buffer is
// exactly m.Size bytes; a failed read yields no buffer at all.
func Capture(s Session, m Module) ([]byte, error) {
	if !m.Valid() {
		return nil, ErrEmptyModule
	}
	return ReadMemory(s, m.Base, int(m.Size))
}
