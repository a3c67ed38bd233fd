// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"fmt"
	"net/url"
)

// Paging constrains a list query to one page of results.
type Paging struct {
	Page           int
	PerPage        int
	IncludeDeleted bool
}

// AllPagesNotDeleted returns paging that includes all non-deleted
// results.
func AllPagesNotDeleted() Paging {
	return Paging{
		Page:           0,
		PerPage:        AllPerPage,
		IncludeDeleted: false,
	}
}

// AllPerPage signals the store to return every result on a single
// page.
const AllPerPage = -1

// AddToQuery adds the paging parameters to the given query values.
func (p Paging) AddToQuery(q url.Values) {
	q.Add("page", fmt.Sprintf("%d", p.Page))
	q.Add("per_page", fmt.Sprintf("%d", p.PerPage))
	q.Add("include_deleted", fmt.Sprintf("%t", p.IncludeDeleted))
}
