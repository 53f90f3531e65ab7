package controller

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/api"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	titleMax       = 150
	descriptionMax = 1000
	commentMax     = 5000
)

func (c *Controller) getFormGrid(form *tview.Form) *tview.Grid {
	header := c.getFormHeader()

	grid := tview.NewGrid().SetRows(len(c.formEvents)+1, 0).SetBorders(true)

	grid.AddItem(header, 0, 0, 1, 1, 0, 0, false)
	grid.AddItem(form, 1, 0, 1, 1, 0, 0, true)

	return grid
}

func (c *Controller) getFormHeader() *tview.Table {
	table := tview.NewTable().SetBorders(false).SetSelectable(false, false)
	row := 0

	for key, event := range c.formEvents {
		text := fmt.Sprintf("[orange]<%s>[white] %s", KeyName(key), event.Description)
		table.SetCell(row, 0, tview.NewTableCell(text))
		row++
	}

	return table
}

func (c *Controller) switchToForm(page string, form *tview.Form, title string) {
	form.SetTitle(fmt.Sprintf(" %s ", title)).SetBorder(true)
	form.SetFocus(0)

	c.pages.SwitchToPage(page)
	c.app.SetInputCapture(c.formKeyboard)
	c.app.SetFocus(form)
}

func inputField(form *tview.Form, label string) *tview.InputField {
	field, _ := form.GetFormItemByLabel(label).(*tview.InputField)

	return field
}

func (c *Controller) initCardForm() *tview.Form {
	c.cardForm = tview.NewForm().
		AddInputField("Title", "", titleMax, nil, nil).
		AddInputField("Description", "", descriptionMax, nil, nil).
		AddInputField("Due (YYYY-MM-DD)", "", len(dueFormat), nil, nil)

	c.cardForm.AddButton("Save", c.saveCard)

	return c.cardForm
}

func (c *Controller) switchToCardForm(edit bool) {
	list, ok := c.list()
	if !ok {
		c.report("card", fmt.Errorf("create a list first"))

		return
	}

	title := fmt.Sprintf("New card in %s", list.Title)
	values := []string{"", "", ""}

	c.editing = false

	if edit {
		card, ok := c.card()
		if !ok {
			return
		}

		c.editing = true
		title = "Edit card"
		values = []string{card.Title, card.Description, ""}

		if card.DueDate != nil {
			values[2] = card.DueDate.Format(dueFormat)
		}
	}

	for i, label := range []string{"Title", "Description", "Due (YYYY-MM-DD)"} {
		inputField(c.cardForm, label).SetText(values[i])
	}

	c.switchToForm(pageCard, c.cardForm, title)
}

func (c *Controller) saveCard() {
	list, ok := c.list()
	if !ok {
		return
	}

	title := inputField(c.cardForm, "Title").GetText()
	description := inputField(c.cardForm, "Description").GetText()

	due, err := ParseDue(inputField(c.cardForm, "Due (YYYY-MM-DD)").GetText())
	if err != nil {
		c.report("save card", err)

		return
	}

	if !c.editing {
		m, err := c.engine.CreateCard(c.boardID, list.ID, api.CardInput{Title: title, Description: description, DueDate: due})
		if err == nil && m != nil {
			c.selectedCard = m.TempID()
		}

		c.started("create card", err)

		return
	}

	card, ok := c.card()
	if !ok {
		c.showBoard()

		return
	}

	patch := CardPatch(card, title, description, due)

	log.Debug().Str("card", card.ID).Msg("saving card")

	_, err = c.engine.UpdateCard(c.boardID, list.ID, card.ID, patch)
	c.started("update card", err)
}

// ParseDue reads a due date typed as YYYY-MM-DD. Blank means no due date.
func ParseDue(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	due, err := time.Parse(dueFormat, s)
	if err != nil {
		return nil, fmt.Errorf("due date must look like %s", dueFormat)
	}

	return &due, nil
}

// CardPatch returns a patch holding only the fields that differ from card.
func CardPatch(card model.Card, title, description string, due *time.Time) api.CardPatch {
	var patch api.CardPatch

	if title != card.Title {
		patch.Title = &title
	}

	if description != card.Description {
		patch.Description = &description
	}

	if due != nil && (card.DueDate == nil || !due.Equal(*card.DueDate)) {
		patch.DueDate = due
	}

	return patch
}

func (c *Controller) initBoardForm() *tview.Form {
	c.boardForm = tview.NewForm().AddInputField("Name", "", titleMax, nil, nil)

	c.boardForm.AddButton("Save", func() {
		name := inputField(c.boardForm, "Name").GetText()

		var err error
		if c.renamingBoard == "" {
			_, err = c.engine.CreateBoard(name)
		} else {
			_, err = c.engine.UpdateBoard(c.renamingBoard, name)
		}

		if err != nil {
			c.report("save board", err)

			return
		}

		c.showBoards()
	})

	return c.boardForm
}

func (c *Controller) switchToBoardForm(rename bool) {
	c.renamingBoard = ""
	title, name := "New board", ""

	if rename {
		board, ok := c.selectedBoard()
		if !ok {
			return
		}

		c.renamingBoard = board.ID
		title, name = "Rename board", board.Name
	}

	inputField(c.boardForm, "Name").SetText(name)
	c.switchToForm(pageBoardForm, c.boardForm, title)
}

func (c *Controller) initListForm() *tview.Form {
	c.listForm = tview.NewForm().AddInputField("Title", "", titleMax, nil, nil)

	c.listForm.AddButton("Save", func() {
		title := inputField(c.listForm, "Title").GetText()

		if c.renamingList {
			list, ok := c.list()
			if !ok {
				c.showBoard()

				return
			}

			_, err := c.engine.UpdateList(c.boardID, list.ID, title)
			c.started("rename list", err)

			return
		}

		_, err := c.engine.CreateList(c.boardID, title)
		if err == nil {
			// jump to the new list, which is appended
			c.listIndex = len(c.lists()) - 1
		}

		c.started("create list", err)
	})

	return c.listForm
}

func (c *Controller) switchToListForm(rename bool) {
	c.renamingList = false
	title, value := "New list", ""

	if rename {
		list, ok := c.list()
		if !ok {
			return
		}

		c.renamingList = true
		title, value = "Rename list", list.Title
	}

	inputField(c.listForm, "Title").SetText(value)
	c.switchToForm(pageList, c.listForm, title)
}

var roles = []model.Role{model.RoleAdmin, model.RoleEditor, model.RoleViewer}

func (c *Controller) initMembersForm() *tview.Form {
	roleNames := make([]string, len(roles))
	for i, r := range roles {
		roleNames[i] = string(r)
	}

	c.membersForm = tview.NewForm().
		AddInputField("Email", "", titleMax, nil, nil).
		AddDropDown("Member", []string{}, -1, nil).
		AddDropDown("Role", roleNames, len(roles)-1, nil)

	c.membersForm.AddButton("Invite", func() {
		_, err := c.engine.InviteMember(c.boardID, strings.TrimSpace(inputField(c.membersForm, "Email").GetText()))
		c.started("invite member", err)
	})

	c.membersForm.AddButton("Set role", func() {
		member, ok := c.selectedMember()
		if !ok {
			c.report("set role", fmt.Errorf("pick a member"))

			return
		}

		index, _ := dropDown(c.membersForm, "Role").GetCurrentOption()
		if index < 0 {
			return
		}

		_, err := c.engine.UpdateMemberRole(c.boardID, member.UserID, roles[index])
		c.started("set role", err)
	})

	c.membersForm.AddButton("Remove", func() {
		member, ok := c.selectedMember()
		if !ok {
			c.report("remove member", fmt.Errorf("pick a member"))

			return
		}

		_, err := c.engine.RemoveMember(c.boardID, member.UserID)
		c.started("remove member", err)
	})

	return c.membersForm
}

func (c *Controller) members() []model.Member {
	v, _ := c.cache.Get(cache.Members(c.boardID))
	roster, _ := v.(model.BoardMembers)

	return roster.Members
}

func (c *Controller) selectedMember() (model.Member, bool) {
	index, _ := dropDown(c.membersForm, "Member").GetCurrentOption()
	members := c.members()

	if index < 0 || index >= len(members) {
		return model.Member{}, false
	}

	return members[index], true
}

func (c *Controller) switchToMembersForm() {
	inputField(c.membersForm, "Email").SetText("")

	dropDown(c.membersForm, "Member").SetOptions(MemberOptions(c.members()), func(_ string, index int) {
		if member, ok := c.selectedMember(); ok && index >= 0 {
			dropDown(c.membersForm, "Role").SetCurrentOption(roleIndex(member.Role))
		}
	}).SetCurrentOption(-1)

	c.switchToForm(pageMembers, c.membersForm, "Members")
}

// MemberOptions lists members as "name <email> (role)".
func MemberOptions(members []model.Member) []string {
	options := make([]string, len(members))
	for i, m := range members {
		options[i] = fmt.Sprintf("%s <%s> (%s)", m.User.Name, m.User.Email, m.Role)
	}

	return options
}

func roleIndex(role model.Role) int {
	for i, r := range roles {
		if r == role {
			return i
		}
	}

	return len(roles) - 1
}

func dropDown(form *tview.Form, label string) *tview.DropDown {
	d, _ := form.GetFormItemByLabel(label).(*tview.DropDown)

	return d
}

func (c *Controller) initLabelForm() *tview.Form {
	colorNames := []string{}
	for _, color := range model.LabelColors() {
		colorNames = append(colorNames, color.Name)
	}

	c.labelForm = tview.NewForm().
		AddDropDown("Label", []string{}, -1, nil).
		AddInputField("Name", "", titleMax, nil, nil).
		AddDropDown("Color", colorNames, 0, nil)

	c.labelForm.AddButton("Toggle", func() {
		list, ok := c.list()
		if !ok {
			return
		}

		card, ok := c.card()
		if !ok {
			c.report("toggle label", fmt.Errorf("select a card first"))

			return
		}

		label, ok := c.selectedLabel()
		if !ok {
			c.report("toggle label", fmt.Errorf("pick a label"))

			return
		}

		_, err := c.engine.ToggleLabel(c.boardID, list.ID, card.ID, label.ID)
		c.started("toggle label", err)
	})

	c.labelForm.AddButton("New", func() {
		name, color := c.labelFields()

		_, err := c.engine.CreateLabel(c.boardID, name, color)
		c.started("create label", err)
	})

	c.labelForm.AddButton("Update", func() {
		label, ok := c.selectedLabel()
		if !ok {
			c.report("update label", fmt.Errorf("pick a label"))

			return
		}

		name, color := c.labelFields()

		_, err := c.engine.UpdateLabel(c.boardID, label.ID, name, color)
		c.started("update label", err)
	})

	c.labelForm.AddButton("Delete", func() {
		label, ok := c.selectedLabel()
		if !ok {
			c.report("delete label", fmt.Errorf("pick a label"))

			return
		}

		_, err := c.engine.DeleteLabel(c.boardID, label.ID)
		c.started("delete label", err)
	})

	return c.labelForm
}

func (c *Controller) labelFields() (name, color string) {
	name = strings.TrimSpace(inputField(c.labelForm, "Name").GetText())

	index, _ := dropDown(c.labelForm, "Color").GetCurrentOption()
	if colors := model.LabelColors(); index >= 0 && index < len(colors) {
		color = colors[index].Value
	}

	return name, color
}

func (c *Controller) boardLabels() []model.Label {
	v, _ := c.cache.Get(cache.Labels(c.boardID))
	labels, _ := v.([]model.Label)

	return labels
}

// switchToLabelForm opens label management. With a card selected, Toggle adds or removes
// the picked label on it.
func (c *Controller) switchToLabelForm() {
	card, hasCard := c.card()

	options := LabelOptions(c.boardLabels(), card)

	dropDown(c.labelForm, "Label").SetOptions(options, func(_ string, index int) {
		label, ok := c.selectedLabel()
		if !ok || index < 0 {
			return
		}

		inputField(c.labelForm, "Name").SetText(label.Name)

		for i, color := range model.LabelColors() {
			if strings.EqualFold(color.Value, label.Color) {
				dropDown(c.labelForm, "Color").SetCurrentOption(i)
			}
		}
	}).SetCurrentOption(-1)

	inputField(c.labelForm, "Name").SetText("")

	title := "Labels"
	if hasCard {
		title = "Labels of " + card.Title
	}

	c.switchToForm(pageLabels, c.labelForm, title)
}

// LabelOptions lists the board labels, marked "- " when card carries them and "+ " when it
// does not.
func LabelOptions(labels []model.Label, card model.Card) []string {
	options := make([]string, len(labels))

	for i, label := range labels {
		mark := "+ "
		if card.HasLabel(label.ID) {
			mark = "- "
		}

		options[i] = mark + label.Name
	}

	return options
}

func (c *Controller) selectedLabel() (model.Label, bool) {
	index, _ := dropDown(c.labelForm, "Label").GetCurrentOption()
	labels := c.boardLabels()

	if index < 0 || index >= len(labels) {
		return model.Label{}, false
	}

	return labels[index], true
}
