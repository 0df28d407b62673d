package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/models"
	"github.com/aurafoods/aura_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func createProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and price are required", "fields": utils.ProcessValidationErrors(err)})
			return
		}
		product, err := models.CreateProduct(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"product": product})
	}
}

func updateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and price are required"})
			return
		}
		product, err := models.UpdateProduct(c.Request.Context(), id, &input)
		if err != nil {
			status := http.StatusBadRequest
			if err == utils.ErrorRecordNotFound {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"product": product})
	}
}

func deleteProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		product, err := models.DeleteProduct(c.Request.Context(), id)
		if err != nil {
			status := http.StatusBadRequest
			if err == utils.ErrorRecordNotFound {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"product": product})
	}
}

func adminListOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, ok := orderFilterFromQuery(c)
		if !ok {
			return
		}
		orders, total, err := models.ListOrders(c.Request.Context(), filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total})
	}
}

func orderFilterFromQuery(c *gin.Context) (models.OrderFilter, bool) {
	filter := models.OrderFilter{}
	if v := c.Query("status"); v != "" {
		status, err := models.ParseOrderStatus(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return filter, false
		}
		filter.Status = &status
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return filter, false
		}
		filter.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return filter, false
		}
		filter.To = &t
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}
	return filter, true
}

type orderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func adminUpdateOrderStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var req orderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
			return
		}
		status, err := models.ParseOrderStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		order, err := models.UpdateOrderStatus(c.Request.Context(), id, status)
		if err != nil {
			httpStatus := http.StatusBadRequest
			if err == utils.ErrorRecordNotFound {
				httpStatus = http.StatusNotFound
			}
			c.JSON(httpStatus, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}

// adminExportOrdersHandler streams the filtered order list as a workbook.
func adminExportOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, ok := orderFilterFromQuery(c)
		if !ok {
			return
		}
		// export ignores pagination defaults
		if filter.Limit == 0 {
			filter.Limit = 200
		}
		orders, _, err := models.ListOrders(c.Request.Context(), filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		f := excelize.NewFile()
		if _, err := f.NewSheet("Sheet1"); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		f.SetCellValue("Sheet1", "A1", "OrderId")
		f.SetCellValue("Sheet1", "B1", "Customer")
		f.SetCellValue("Sheet1", "C1", "Status")
		f.SetCellValue("Sheet1", "D1", "Subtotal")
		f.SetCellValue("Sheet1", "E1", "Total")
		f.SetCellValue("Sheet1", "F1", "CreatedAt")

		for i, o := range orders {
			row := fmt.Sprint(i + 2)
			customer := ""
			if o.Profile != nil {
				customer = o.Profile.Email
			}
			f.SetCellValue("Sheet1", "A"+row, o.ID)
			f.SetCellValue("Sheet1", "B"+row, customer)
			f.SetCellValue("Sheet1", "C"+row, string(o.Status))
			f.SetCellValue("Sheet1", "D"+row, o.Subtotal.String())
			f.SetCellValue("Sheet1", "E"+row, o.Total.String())
			f.SetCellValue("Sheet1", "F"+row, o.CreatedAt.Format(time.RFC3339))
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=orders.xlsx")
		if err := f.Write(c.Writer); err != nil {
			config.LogError(config.GetLogger(), "admin.go", "adminExportOrdersHandler", "excelize write", nil, err)
		}
	}
}

func adminListDealersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var status *models.DealerStatus
		if v := c.Query("status"); v != "" {
			s := models.DealerStatus(v)
			status = &s
		}
		dealers, err := models.ListDealers(c.Request.Context(), status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"dealers": dealers})
	}
}

func adminApproveDealerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		dealer, err := models.ApproveDealer(c.Request.Context(), id)
		if err != nil {
			status := http.StatusBadRequest
			if err == utils.ErrorRecordNotFound {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"dealer": dealer})
	}
}

func adminDealerPayoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		total, err := models.MarkCommissionsPaid(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"dealer_id": id, "paid": total})
	}
}

func adminCreateGiftCardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewGiftCard
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
			return
		}
		card, err := models.CreateGiftCard(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"gift_card": card})
	}
}

func adminListVendingMachinesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		machines, err := models.ListVendingMachines(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"vending_machines": machines})
	}
}

func adminCreateVendingMachineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewVendingMachine
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "label and location are required"})
			return
		}
		machine, err := models.CreateVendingMachine(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"vending_machine": machine})
	}
}

type machineStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func adminUpdateVendingMachineStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var req machineStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
			return
		}
		machine, err := models.UpdateVendingMachineStatus(c.Request.Context(), id, models.VendingMachineStatus(req.Status))
		if err != nil {
			status := http.StatusBadRequest
			if err == utils.ErrorRecordNotFound {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"vending_machine": machine})
	}
}

func adminListVendingSlotsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		slots, err := models.ListVendingSlots(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"slots": slots})
	}
}

func adminUpsertVendingSlotHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.VendingSlotInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "slot_code and product_id are required"})
			return
		}
		slot, err := models.UpsertVendingSlot(c.Request.Context(), id, &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"slot": slot})
	}
}

func adminListInteractionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var channel *string
		if v := c.Query("channel"); v != "" {
			channel = &v
		}
		limit := 0
		if v := c.Query("limit"); v != "" {
			limit, _ = strconv.Atoi(v)
		}
		rows, err := models.ListInteractions(c.Request.Context(), channel, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"interactions": rows})
	}
}

type outboxReplayRequest struct {
	RecordId int `json:"record_id"`
}

// outboxReplayHandler re-queues a DEAD/FAILED outbox row for the
// dispatcher to pick up again.
func outboxReplayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req outboxReplayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.RecordId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "record_id is required"})
			return
		}

		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		now := time.Now().UTC()
		result := db.WithContext(c.Request.Context()).
			Model(&models.EventRecord{}).
			Where("id = ? AND publish_status IN ?", req.RecordId,
				[]string{models.OutboxPublishStatusDead, models.OutboxPublishStatusFailed}).
			Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusFailed,
				"next_attempt_at":    &now,
				"publish_attempts":   0,
				"locked_at":          nil,
				"locked_by":          nil,
				"last_publish_error": nil,
			})
		if result.Error != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": result.Error.Error()})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "no replayable record"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"record_id":       req.RecordId,
			"publish_status":  models.OutboxPublishStatusFailed,
			"next_attempt_at": now.Format(time.RFC3339Nano),
		})
	}
}
