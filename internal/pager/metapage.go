package pager

import "encoding/json"

// metaPage is the decoded form of page 0. It holds the free list and the
// tree-name-to-root-page table inline, per the file format: production
// implementations with many trees or a long free list would externalize
// these into their own page chains, but this pager keeps them in page 0
// to match the reference layout and because the corpus this file targets
// never outgrows a single page's JSON budget in practice.
type metaPage struct {
	FreeList  []PageIndex          `json:"free_list"`
	RootPages map[string]PageIndex `json:"root_pages"`
}

func newMetaPage() *metaPage {
	return &metaPage{RootPages: make(map[string]PageIndex)}
}

func (m *metaPage) encode() ([]byte, error) {
	if m.RootPages == nil {
		m.RootPages = make(map[string]PageIndex)
	}
	return json.Marshal(m)
}

func decodeMetaPage(buf []byte) (*metaPage, error) {
	var m metaPage
	if err := json.Unmarshal(buf, &m); err != nil {
		return nil, err
	}
	if m.RootPages == nil {
		m.RootPages = make(map[string]PageIndex)
	}
	return &m, nil
}

func (m *metaPage) popFree() (PageIndex, bool) {
	if len(m.FreeList) == 0 {
		return 0, false
	}
	idx := m.FreeList[len(m.FreeList)-1]
	m.FreeList = m.FreeList[:len(m.FreeList)-1]
	return idx, true
}

func (m *metaPage) pushFree(idx PageIndex) {
	m.FreeList = append(m.FreeList, idx)
}

func (m *metaPage) isFree(idx PageIndex) bool {
	for _, f := range m.FreeList {
		if f == idx {
			return true
		}
	}
	return false
}
