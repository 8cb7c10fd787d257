package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the utility and account routes on router.
func RegisterRoutes(router gin.IRouter, accounts *AccountHandler) {
	router.GET("/", Index)
	router.GET("/health", Health)

	group := router.Group("/accounts")
	{
		group.POST("", accounts.CreateAccount)
		group.GET("", accounts.ListAccounts)
		group.GET("/:id", accounts.GetAccount)
		group.PUT("/:id", accounts.UpdateAccount)
		group.DELETE("/:id", accounts.DeleteAccount)
	}
}
